package store

// Profile is a named warehouse connection read from the profiles file.
type Profile struct {
	Name   string
	Type   string
	Values map[string]string
}

func (p Profile) Get(key string) string {
	return p.Values[key]
}

func (p Profile) GetOr(key, fallback string) string {
	if v, ok := p.Values[key]; ok && v != "" {
		return v
	}
	return fallback
}
