package mcpserver

// DocumentFormatContract describes the canonical Markdown document format
// that LLM consumers should follow when creating or editing documents.
const DocumentFormatContract = `# Skald Document Format Contract

Every Markdown document stored in a Skald workspace SHOULD follow this
structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – used in search and listings
date: 2025-01-15                    # OPTIONAL – ISO-8601 date
categories:                         # OPTIONAL – YAML list
  - travel
tags:                               # OPTIONAL – YAML list
  - tag-one
photos:                             # OPTIONAL – cover image, workspace file name
  - cover.jpg
---

Body text in standard Markdown.

Reference workspace images inline: ![description](photo.jpg)
` + "```" + `

## Rules

1. **Front matter is optional.** When present, the ` + "```" + `---` + "```" + ` fences must be
   the first thing in the file (no leading blank lines).
2. **File names are flat.** No directories: ` + "`" + `notes.md` + "`" + `, never ` + "`" + `folder/notes.md` + "`" + `.
   Document names end with ` + "`" + `.md` + "`" + `.
3. **Image references** name workspace files directly: ` + "`" + `![alt](photo.jpg)` + "`" + `.
   A reference to a file not in the workspace is reported as a missing
   resource, not an error.
4. **External links** (http, https, ftp) are never treated as workspace
   resources; use regular Markdown links for them.
5. **Supported image formats:** jpg, jpeg, png, gif, svg, webp. Imported
   non-JPEG images may be re-encoded to JPEG.
6. **Encoding** is UTF-8.

## Example

` + "```" + `markdown
---
title: Coastal hike
date: 2025-01-20
tags:
  - hiking
photos:
  - coast-trail.jpg
---

# Coastal hike

The trail starts at the lighthouse.

![View from the cliffs](coast-trail.jpg)
` + "```" + `
`
