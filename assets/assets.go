// Package assets embeds the static files shipped with the binaries.
package assets

import "embed"

//go:embed templates/email/*.txt templates/email/*.gohtml
var Templates embed.FS

// CommonPasswords is a gzipped, newline separated list of passwords too common to be accepted.
//go:embed common-passwords.txt.gz
var CommonPasswords []byte

// CityNames is a JSON array of city names (alphabetically sorted) used for anonymous student names.
//go:embed city_names.json
var CityNames []byte
