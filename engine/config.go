package engine

// Defaults applied by Config.withDefaults.
const (
	DefaultAllocateExport = "allocate"
	DefaultHostModule     = "env"
)

// Config holds configuration for instantiating a module.
type Config struct {
	// ModuleName names the instance in the wazero runtime. Empty means anonymous.
	ModuleName string `yaml:"module_name"`

	// AllocateExport is the export bound to local-or-import index 0.
	// It must have the signature (i32 size, i32 type_tag) -> i32.
	AllocateExport string `yaml:"allocate_export"`

	// MemoryExport selects the memory exposed as memory 0.
	// Empty means the module's default memory.
	MemoryExport string `yaml:"memory_export"`

	// HostModule is the import namespace host functions are registered under.
	HostModule string `yaml:"host_module"`

	// Functions are bound to local-or-import indices 1..n in order. Each name
	// refers to a host function or an export of the module.
	Functions []string `yaml:"functions"`

	// Hosts are Go functions exposed both to the module as imports and to
	// adapters through Functions.
	Hosts []*HostFunc `yaml:"-"`

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	// WASI instantiates wasi_snapshot_preview1 before the module.
	WASI bool `yaml:"wasi"`
}

func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.AllocateExport == "" {
		out.AllocateExport = DefaultAllocateExport
	}
	if out.HostModule == "" {
		out.HostModule = DefaultHostModule
	}
	return out
}
