package config

import (
	"fmt"
	"os"
	"strings"
)

// Expand substitutes a leading "~" and "$VAR"-style environment references
// in path. $HOME always resolves to the supplied home argument (not
// whatever os.Getenv("HOME") happens to return), matching spec.md §6. An
// undefined $VAR is a fatal error, returned rather than silently dropped.
func Expand(path, home string) (string, error) {
	if path == "" {
		return path, nil
	}

	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		path = home + path[1:]
	}

	var b strings.Builder
	i := 0
	for i < len(path) {
		c := path[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}

		j := i + 1
		for j < len(path) && isVarNameByte(path[j]) {
			j++
		}
		if j == i+1 {
			// Bare '$' with no following name characters; pass through literally.
			b.WriteByte('$')
			i++
			continue
		}

		name := path[i+1 : j]
		var val string
		if name == "HOME" {
			val = home
		} else {
			v, ok := os.LookupEnv(name)
			if !ok {
				return "", fmt.Errorf("undefined environment variable %q in path %q", name, path)
			}
			val = v
		}
		b.WriteString(val)
		i = j
	}

	return b.String(), nil
}

func isVarNameByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
