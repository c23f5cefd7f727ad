package mcpserver

const guideURI = "filedeck://guide"

// UsageGuide explains how filedeck interprets paths and names so LLM
// consumers can predict the effect of each tool.
const UsageGuide = `# filedeck usage guide

All tools work inside one managed root directory. Nothing outside it can be
read or changed.

## Paths

- ` + "`dir`" + ` is relative to the managed root and uses forward slashes.
  Backslashes are treated as separators. An empty ` + "`dir`" + ` is the root.
- ` + "`.`" + ` segments are ignored and ` + "`..`" + ` steps up one level, never above the root.
  A path that would leave the root (through ` + "`..`" + ` or a symlink) is treated as
  the root itself.
- Names passed as ` + "`name`" + `, ` + "`old`" + ` or ` + "`new`" + ` are joined onto ` + "`dir`" + `.

## Results

Mutating tools return an outcome ` + "`{\"status\", \"code\", \"path\"}`" + `:

- ` + "`success`" + `: the change happened; ` + "`path`" + ` is where the entry now lives.
- ` + "`info`" + `: nothing to do (empty name, name already taken, entry missing).
- errors carry a code such as ` + "`not_found`" + `, ` + "`unsupported_file_type`" + `,
  ` + "`invalid_target`" + ` (an operation on the root itself) or ` + "`operation_failed`" + `.

Existing entries are never overwritten by create_folder, create_file or rename.
upload_file replaces an existing file of the same name.

## Trash

- delete moves the entry into the trash as ` + "`<name>__YYYYMMDD_HHMMSS`" + `.
- restore puts it back at the managed root under its original name. If that
  name is taken, ` + "` (1)`" + `, ` + "` (2)`" + `, ... is inserted before the extension
  (` + "`notes.txt`" + ` becomes ` + "`notes (1).txt`" + `).
- Trash entries never expire.

## Editable files

read_file and write_file accept these extensions only:
php, html, htm, css, js, ts, jsx, tsx, py, rb, go, java, c, cpp, cs, sh,
md, txt, json, xml, yml, yaml, ini, conf, sql.
write_file only changes files that already exist; create one first with
create_file.
`
