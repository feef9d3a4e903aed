package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.Server.Listen).To(Equal(defaults.Server.Listen))
			Expect(cfg.Client.ServerTarget).To(Equal(defaults.Client.ServerTarget))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
			Expect(cfg.VectorStore.Target).To(Equal(defaults.VectorStore.Target))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
			Expect(cfg.LLM.Model).To(Equal(defaults.LLM.Model))
			Expect(cfg.Ingest.ChunkSize).To(Equal(defaults.Ingest.ChunkSize))
			Expect(cfg.Review.MaxContextBytes).To(Equal(defaults.Review.MaxContextBytes))
		})

		It("loads a valid config file and fills missing fields with defaults", func() {
			data := `version = 0

[server]
listen = ":4000"

[llm]
model = "codellama"

[github]
token = "ghp_testtoken"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Listen).To(Equal(":4000"))
			Expect(cfg.LLM.Model).To(Equal("codellama"))
			Expect(cfg.GitHub.Token).To(Equal("ghp_testtoken"))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
		})

		It("rejects an unsupported config version", func() {
			data := "version = 99\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips the configuration", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Server.Listen = ":9999"
			cfg.Events.Provider = "kafka"
			cfg.Events.Brokers = []string{"localhost:9092"}

			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Server.Listen).To(Equal(":9999"))
			Expect(loaded.Events.Provider).To(Equal("kafka"))
			Expect(loaded.Events.Brokers).To(Equal([]string{"localhost:9092"}))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Describe("config keys", func() {
		It("gets and sets values by dotted key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("llm.model", "mistral")).To(Succeed())

			got, err := c.GetConfigValue("llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("mistral"))
		})

		It("parses numeric keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("embedding.dimensions", "1024")).To(Succeed())

			got, err := c.GetConfigValue("embedding.dimensions")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("1024"))

			Expect(c.SetConfigValue("embedding.dimensions", "not-a-number")).NotTo(Succeed())
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("nope.nope", "x")).NotTo(Succeed())
			_, err = c.GetConfigValue("nope.nope")
			Expect(err).To(HaveOccurred())
		})

		It("lists every supported key exactly once", func() {
			keys := config.ValidConfigKeys()
			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			Expect(keys).To(ContainElements(
				"server.listen",
				"vector_store.provider",
				"embedding.model",
				"llm.model",
				"github.token",
				"events.provider",
			))
		})
	})

	Describe("InitViper", func() {
		It("applies defaults when no file is present", func() {
			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("server.listen")).To(Equal(":3000"))
			Expect(v.GetString("embedding.model")).To(Equal("nomic-embed-text"))
			Expect(v.GetUint("embedding.dimensions")).To(Equal(uint(768)))
		})

		It("prefers file values over defaults", func() {
			data := "[server]\nlisten = \":5000\"\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("server.listen")).To(Equal(":5000"))
		})

		It("prefers environment variables over file values", func() {
			GinkgoT().Setenv("CODESCOUT_SERVER_LISTEN", ":6000")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("server.listen")).To(Equal(":6000"))
		})
	})
})
