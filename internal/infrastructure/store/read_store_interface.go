package store

// ReadStoreInterface defines the interface for read model storage.
// Collections are named by the readmodel.Collection* constants.
type ReadStoreInterface interface {
	Set(collection, id string, data any)
	Get(collection, id string) (any, bool)
	GetAll(collection string) []any
	Delete(collection, id string)

	// Update applies updateFn to the stored model; false when it does not exist
	Update(collection, id string, updateFn func(current any) any) bool
}
