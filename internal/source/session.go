package source

// Session carries the execution state shared by every artifact reachable
// from one graph root: the parameters a job run would receive and the
// catalog and schema unqualified table names resolve against. It is plain
// data; nothing in graph construction mutates it.
type Session struct {
	NamedParameters map[string]string
	SparkConf       map[string]string
	DefaultCatalog  string
	DefaultSchema   string
}
