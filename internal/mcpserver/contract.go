package mcpserver

// LibraryConventions describes how the GPX library is laid out and how the
// tools behave, for LLM consumers.
const LibraryConventions = `# gpx2maps Library Conventions

The library is a flat directory of GPX 1.1 files indexed in SQLite.

## File names

- Downloaded routes are stored as ` + "`" + `<source>_<route-id>.gpx` + "`" + `, where
  ` + "`" + `<source>` + "`" + ` is one of ` + "`" + `routeyou` + "`" + `, ` + "`" + `wikiloc` + "`" + `, ` + "`" + `malmedy` + "`" + `.
- Route ids keep only ` + "`" + `A-Z a-z 0-9 . _ -` + "`" + `; anything else becomes ` + "`" + `-` + "`" + `.
- Imported files keep the given name; ` + "`" + `.gpx` + "`" + ` is appended when missing.
- Paths are relative to the library root, use forward slashes and must end in ` + "`" + `.gpx` + "`" + `.

## Routes

- Points come from track segments in document order, else from ` + "`" + `<rte>` + "`" + `
  points, else from ` + "`" + `<wpt>` + "`" + ` elements. A file without points is rejected.
- Name: metadata name, else first track name, else first route name, else
  ` + "`" + `Unnamed Route` + "`" + `.
- Distance is the haversine sum in kilometres; elevation gain sums the positive
  steps between consecutive points that both carry ` + "`" + `<ele>` + "`" + `.

## Maps links

- ` + "`" + `convert_route` + "`" + ` returns a Google Maps walking directions URL. At most 25
  points are used, sampled evenly with the first and last kept. Open tracks are
  closed back to the first point.
- ` + "`" + `validated: false` + "`" + ` with a warning means the Directions API check failed or was
  skipped; the link itself is still usable.

## Workflow

1. ` + "`" + `search_sources` + "`" + ` to find listings (title prefix and max distance filter).
2. ` + "`" + `download_route` + "`" + ` with a listing URL to store it in the library.
3. ` + "`" + `route_summary` + "`" + ` or ` + "`" + `read_route` + "`" + ` to inspect it.
4. ` + "`" + `convert_route` + "`" + ` to get the maps link.

Existing files are never replaced unless ` + "`" + `overwrite` + "`" + ` is true.
`
