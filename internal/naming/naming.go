// Package naming converts identifiers between the snake_case used on the wire and the
// lowerCamel/UpperCamel forms used for generated names.
package naming

import "strings"

// CamelCase upper-cases every lower-case ASCII letter that follows an underscore and drops
// that underscore. Other underscores are kept: "get_2fa" stays as is.
func CamelCase(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i+1 < len(s) && isLower(s[i+1]) {
			b.WriteByte(s[i+1] - 'a' + 'A')
			i++

			continue
		}

		b.WriteByte(c)
	}

	return b.String()
}

// SnakeCase lower-cases the first character, then replaces every upper-case ASCII letter
// with an underscore followed by its lower-case form.
func SnakeCase(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder

	b.Grow(len(s) + 4)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case i == 0 && isUpper(c):
			b.WriteByte(c - 'A' + 'a')
		case isUpper(c):
			b.WriteByte('_')
			b.WriteByte(c - 'A' + 'a')
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// TypeName builds the UpperCamel name of a generated type, e.g.
// TypeName([core user], "get_users", "ParamsType") is "CoreUserGetUsersParamsType".
func TypeName(pkg []string, function, suffix string) string {
	return CamelCase("_"+strings.Join(append(append([]string{}, pkg...), function), "_")) + suffix
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}
