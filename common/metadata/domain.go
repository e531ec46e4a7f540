package metadata

func IsDomainName(domain string) bool {
	l := len(domain)
	if l == 0 || l > 254 {
		return false
	}
	labelLength := 0
	for i := 0; i < l; i++ {
		c := domain[i]
		if c == '.' {
			if labelLength == 0 {
				return false
			}
			labelLength = 0
			continue
		}
		if !isLabelByte(c) {
			return false
		}
		labelLength++
		if labelLength > 63 {
			return false
		}
	}
	return labelLength > 0 || domain[l-1] == '.' && l > 1
}

func isLabelByte(c byte) bool {
	return c >= 0x80 ||
		'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '_'
}
