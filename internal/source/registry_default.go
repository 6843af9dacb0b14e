package source

// DefaultReaderRegistry wires the module's built-in readers in a fixed
// priority order: the self-describing scalar format first (cheapest,
// unambiguous magic check), then the three image codecs by how common
// each format is in practice.
func DefaultReaderRegistry() *ReaderRegistry {
	return NewReaderRegistry(
		NewScalarRawReader(),
		NewPNGReader(),
		NewJPEGReader(),
		NewWebPReader(),
	)
}

// DefaultWriterRegistry wires the module's built-in writers in the same
// order as DefaultReaderRegistry.
func DefaultWriterRegistry() *WriterRegistry {
	return NewWriterRegistry(
		NewScalarRawWriter(),
		NewPNGWriter(),
		NewJPEGWriter(),
		NewWebPWriter(),
	)
}
