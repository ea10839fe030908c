package remote

import "strings"

// ExtractChildObjects splits a flat {"id1":{...},"id2":{...}} document into
// the raw text of each child object. It tracks brace depth and string state
// (an unescaped quote toggles it) so braces and commas inside string values,
// and objects nested inside a child, do not split a fragment. It does not
// validate the JSON; callers parse each fragment on its own.
func ExtractChildObjects(body string) []string {
	var list []string

	body = strings.TrimSpace(body)
	if body == "" || body == "{}" {
		return list
	}

	if body[0] == '{' {
		body = body[1:]
	}
	if len(body) > 0 && body[len(body)-1] == '}' {
		body = body[:len(body)-1]
	}

	depth := 0
	start := -1
	inString := false

	for i := 0; i < len(body); i++ {
		c := body[i]

		if c == '"' && (i == 0 || body[i-1] != '\\') {
			inString = !inString
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				list = append(list, body[start:i+1])
				start = -1
			}
		}
	}

	return list
}
