package ports

// ConfigPort exposes parsed configuration values keyed by colon-dotted
// paths such as "concretizer:duplicates:strategy". Implementations are
// read-only snapshots for the duration of one solve.
type ConfigPort interface {
	Get(key string) (any, bool)
	GetString(key string, fallback string) string
	GetBool(key string, fallback bool) bool
	GetInt(key string, fallback int) int
	GetStringSlice(key string) []string
}
