package mcpserver

// PromptFormatContract describes the canonical prompt file format that
// LLM consumers should follow when storing prompts with metadata.
const PromptFormatContract = `# Ansuz Prompt Format

Every prompt is a single Markdown file. An optional YAML metadata block
may appear at the very start of the file.

## Structure

` + "```" + `markdown
---
description: One-line summary shown in listings   # OPTIONAL
model: fast                                       # OPTIONAL - any key/value pairs
args:                                             # OPTIONAL - arbitrary YAML values
  - diff
  - style
---

The prompt body in plain text or Markdown.
` + "```" + `

## Rules

1. **Metadata is optional.** A file without a leading ` + "`---`" + ` block is all body.
2. **The opening ` + "`---`" + ` must be the first bytes of the file.** A malformed or
   unterminated block is treated as body text, never as an error.
3. **Keys are free-form.** Any YAML mapping is accepted and returned verbatim
   in list results.
4. **Names are sanitized.** The stored filename is the lowercased name with
   every character outside ` + "`[a-z0-9-_]`" + ` replaced by ` + "`_`" + `. Two names that
   sanitize to the same stem refer to the same prompt; the last write wins.
   Use the canonical (sanitized) name for get/delete.
5. **Listings show a preview**, not the body: the first 100 characters with
   newlines collapsed, always ending in ` + "`...`" + `.

## Example

` + "```" + `markdown
---
description: Reviews a diff for regressions
model: fast
---

Review the following diff. Flag behavior changes, missing tests, and
anything that could break callers.
` + "```" + `
`
