package schema

// DefaultNamespace prefixes every ledger key when no namespace is
// configured. Distinct namespaces let unrelated deployments share one
// substrate without colliding.
const DefaultNamespace = "cintel"

// SchemaVersion is the namespace schema this client reads and writes.
// Doctor compares it against the version recorded in the meta key.
const SchemaVersion = "1.0.0"

// Namespace returns ns, or the default when ns is empty.
func Namespace(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

// RecordKey returns the ledger key holding the record with the given id.
// Layout: {ns}/record/{id}
func RecordKey(ns, id string) string {
	return Namespace(ns) + "/record/" + id
}

// IndexKey returns the single ledger key holding the record index.
// Layout: {ns}/index
func IndexKey(ns string) string {
	return Namespace(ns) + "/index"
}

// MetaKey returns the ledger key holding namespace metadata.
// Layout: {ns}/meta
func MetaKey(ns string) string {
	return Namespace(ns) + "/meta"
}
