// Package memory persists conversations as one JSON file per name and
// imports conversations exported by other tools.
//
// Persistence model:
//   - A record holds name, created, modified, model, system_prompt,
//     messages, web_search, tools_path and shell_enabled.
//   - Messages are stored in the Messages API's own JSON shape, so a saved
//     file can be replayed against the API unchanged.
//   - Writes go to a temp file in the same directory and are renamed into
//     place.
package memory
