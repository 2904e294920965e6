package mcpserver

// LayoutURI identifies the article layout resource.
const LayoutURI = "bock://article-layout"

// ArticleLayout describes how articles are addressed so tool callers can
// build valid paths and revision ids.
const ArticleLayout = `# Bock Article Layout

Articles are Markdown files under a git repository. Tools address them by
logical path: the folders and the file name without the .md extension.

| On disk                    | Logical path           | Route                  |
|----------------------------|------------------------|------------------------|
| Shell.md                   | Shell                  | Shell                  |
| Tech Notes/Linux/Shell.md  | Tech Notes/Linux/Shell | Tech_Notes/Linux/Shell |

## Rules

1. Logical paths use "/" and never start with one.
2. Routes replace spaces with underscores; tools accept either form.
3. Only three folder levels below the root are scanned.
4. Hidden entries, __assets and the search index folder are never articles.
5. Revision ids are git commit ids. A prefix of at least 4 characters works.
6. Search terms need at least 3 characters. Words match names, contents and
   paths fuzzily and as substrings; * and ? act as wildcards.
`
