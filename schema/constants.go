package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// Direction represents which end of the ranking a selection takes.
	Direction string

	// TensorRole represents the parameter role a tensor plays in a module.
	TensorRole string

	// CacheBackend represents the database backend for caching.
	CacheBackend string
)

// All output modes supported.
const (
	TextOut    OutputMode = "text" // default
	CSVOut     OutputMode = "csv"
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// Selection directions. The signed percent at the CLI boundary maps onto
// these: percent >= 0 selects from the top, negative from the bottom.
const (
	TopDirection    Direction = "top"
	BottomDirection Direction = "bottom"
)

// Tensor roles recognized by the catalog. Scanning defaults to weight
// matrices; bias vectors and rotary frequency tables are discoverable as
// types but carry no spectral signal worth decomposing.
const (
	WeightRole  TensorRole = "weight"
	BiasRole    TensorRole = "bias"
	InvFreqRole TensorRole = "inv_freq"
)

// All cache backends supported.
const (
	SQLiteBackend     CacheBackend = "sqlite"
	MySQLBackend      CacheBackend = "mysql"
	PostgreSQLBackend CacheBackend = "postgresql"
	NoneBackend       CacheBackend = "none"
)

// Fixed entries always included in a selection regardless of scoring: the
// output head projection and the input embedding table.
const (
	FixedOutputHead     = "lm_head.weight"
	FixedInputEmbedding = "model.embed_tokens.weight"
)
