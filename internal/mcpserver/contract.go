package mcpserver

// ContentFormatContract describes the authoring format the pipeline accepts,
// so LLM consumers can explain build failures and suggest fixes.
const ContentFormatContract = `# Quire Content Format Contract

Every content file is UTF-8 Markdown with optional YAML frontmatter, or a
JSON/YAML data file holding one record or a list of records.

## Frontmatter

` + "```" + `markdown
---
title: Button                       # field names and kinds come from the collection schema
description: Trigger an action      # use list_collections to see each schema
status: stable
---
` + "```" + `

1. The ` + "`---`" + ` fence must be the first line of the file.
2. Every non-optional field must be present; ` + "`null`" + ` counts as missing.
3. Enum values are matched exactly, with no case folding or coercion.
4. Unknown keys are dropped from the entry.
5. Fields of kind markdown, mdx, toc and metadata are computed from the body and
   must not be set in frontmatter.

Validation failures are reported as ` + "`code:path`" + ` pairs:
` + "`missing:title`" + `, ` + "`type:links.1.url`" + `, ` + "`enum:type`" + `.

## Directives

` + "```" + `markdown
:::note[Optional title]
Callout body. Also tip, info, warning, caution, important, danger.
:::

::::code-group
` + "```" + `sh title="npm"
npm install @quire/react
` + "```" + `
::::

:::steps
### Install
### Configure
:::

:::card[Docs]{href="/docs"}
Card body.
:::
` + "```" + `

- A container opens with three or more colons and closes with a line of at
  least as many colons. Nest by using a longer outer fence.
- An unterminated container fails the file with a transform error.
- Attributes: ` + "`{#id .class key=value key=\"quoted\"}`" + `.

## Code blocks

- ` + "`title=\"file.tsx\"`" + ` in the info string adds a title bar.
- ` + "`{1,3-4}`" + ` highlights lines; ` + "`/word/`" + ` highlights a word.
- Comment notations inside the code: ` + "`// [!code ++]`" + `, ` + "`// [!code --]`" + `,
  ` + "`// [!code focus]`" + `, ` + "`// [!code highlight:2]`" + `, ` + "`// [!code word:Button]`" + `.

## Slugs

The slug is the path after the content directory without the .md/.mdx
extension: ` + "`content/docs/button.mdx`" + ` becomes ` + "`docs/button`" + `. Data file
records are addressed as ` + "`<file>/<index>`" + `. Two files with the same slug in
one collection abort the whole build.
`
