package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Laguz Note Format Contract

Every Markdown note stored in Laguz MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Optional display title       # OPTIONAL frontmatter block
created: 2026-01-15                 # OPTIONAL - ISO-8601 date or datetime
---

Body text in standard Markdown with #tags and inline properties.

Played [juego::Novalands, horas::12, comprado::Si] last night.
Single facts use one bracket: [precio::10].
` + "```" + `

## Rules

1. **Notes are identified by name.** The name is the filename stem, unique
   across the vault, with no path separators and no leading dot.
2. **Inline properties** use the ` + "`" + `[key::value]` + "`" + ` syntax anywhere in the body.
   Keys are lowercase identifiers; values are free text up to the closing
   bracket or the next comma.
3. **Grouped properties** share one bracket, separated by commas:
   ` + "`" + `[juego::Elden Ring, horas::80, completado::Si]` + "`" + `. A group reads as one
   record (one table row) in base views. Keep facts about the same thing in
   the same bracket.
4. **Repeat the identifying key** (e.g. ` + "`" + `juego` + "`" + `) when logging the same
   subject across lines or notes; records with an equal identifying value
   merge into one row.
5. **Tags** are ` + "`" + `#word` + "`" + ` tokens in the body, case-insensitive, letters,
   digits, hyphens, and underscores.
6. **Dates** in property values use ` + "`" + `YYYY-MM-DD` + "`" + ` so they sort and filter
   correctly.
7. **Lists** repeat the key: ` + "`" + `[genero::rpg] [genero::aventura]` + "`" + `.
8. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
9. **Encoding** is UTF-8 with a trailing newline.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the note body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference in notes using the absolute path: ` + "`" + `![description](/attachments/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
- Do **not** use relative paths like ` + "`" + `./attachments/...` + "`" + ` - always use ` + "`" + `/attachments/filename` + "`" + `.

## Example

` + "```" + `markdown
---
title: Game log 2026
---

# Game log

#gaming #backlog

Started [juego::Hollow Knight, horas::2, completado::No] on the couch.
Finished [juego::Celeste, horas::14, completado::Si, nota::9].

Wishlist: [juego::Silksong] [precio::30]
` + "```" + `
`
