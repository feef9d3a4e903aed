package retrieval

import (
	"fmt"
	"strings"

	"github.com/codescoutco/codescout/pkg/chunker"
)

// NoIssuesSentinel is the exact string the review template requires the
// model to emit when a diff is clean. Downstream consumers match on it
// verbatim.
const NoIssuesSentinel = "No issues found."

const blockDelimiter = "\n---\n"

const chatTemplate = `You are a senior software engineer.

Answer the question using ONLY the following context.
Return FULL code blocks.
Mention file path and line numbers.

Code:
%s

Question:
%s
`

const reviewTemplate = `You are a senior software engineer reviewing a pull request.

Review ONLY the code changes below. Do not speculate about code outside the diff.

Report each issue as a record with exactly these fields:
Category: Bug|Security|Performance|Suggestion
File: <file path>
Lines: <start>-<end>
Problem: <what is wrong>
Fix: <how to fix it>

If there are no issues, respond with exactly: ` + NoIssuesSentinel + `

Code Changes:
%s
`

// AssembleContext renders chunks as labeled blocks separated by a
// visible delimiter, the shared context format for every prompt.
func AssembleContext(chunks []chunker.Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, fmt.Sprintf("File: %s\nLines: %d-%d\n\n%s", c.FilePath, c.StartLine, c.EndLine, c.Code))
	}
	return strings.Join(blocks, blockDelimiter)
}

// ChatPrompt substitutes retrieved context and the question into the
// chat instruction template.
func ChatPrompt(context string, question string) string {
	return fmt.Sprintf(chatTemplate, context, question)
}

// ReviewPrompt substitutes the assembled diff context into the review
// instruction template.
func ReviewPrompt(context string) string {
	return fmt.Sprintf(reviewTemplate, context)
}
