package validation

// ValidateID checks the identifier grammar used to name filter sets and other
// query components: one or more ASCII letters, digits, '_' or '-'.
func ValidateID(id string) error {
	if id == "" {
		return MissingField("id")
	}
	for i := 0; i < len(id); i++ {
		if !isIDChar(id[i]) {
			return InvalidSyntax("id", nil, "invalid id %q: illegal character %q at position %d", id, id[i], i)
		}
	}
	return nil
}

func isIDChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_' || ch == '-'
}
