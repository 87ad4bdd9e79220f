package session

// Storage keys mirror the browser front end's local storage layout, so a
// dump of either store reads the same way.
const (
	StorageKeyUser  = "real_backend_user"
	StorageKeyToken = "real_backend_token"
)

// Store persists the session mirror. The in-memory slot stays authoritative
// while the process lives; the store is only read back at startup. Absence
// of either key means no session.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
