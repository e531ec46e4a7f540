package conf

// stripComments blanks // and # line comments outside JSON strings, keeping line
// numbers intact for decoder errors.
func stripComments(content []byte) []byte {
	output := make([]byte, 0, len(content))
	var inString, escaped, inComment bool
	for index := 0; index < len(content); index++ {
		c := content[index]
		switch {
		case inComment:
			if c == '\n' {
				inComment = false
				output = append(output, c)
			}
		case inString:
			output = append(output, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
			output = append(output, c)
		case c == '#', c == '/' && index+1 < len(content) && content[index+1] == '/':
			inComment = true
		default:
			output = append(output, c)
		}
	}
	return output
}
