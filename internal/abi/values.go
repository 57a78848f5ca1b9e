package abi

// Version names a pinned value ABI revision; the C backend header surface
// is stable within a version and only ever changes across one.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// Requires names a native backend the emitted translation unit declares a
// dependency on (spec §4.C7 "Native backends"): the driver resolves this
// to a pinned static library and header pair under deps/x07/.
type Requires struct {
	BackendID string `json:"backend_id"`
	ABIMajor  int    `json:"abi_major"`
}

// HeaderSurface returns the pinned C struct/typedef layouts for the given
// ABI version, as a single translation-unit-prependable block. The layout
// text itself never changes within a version (spec invariant I4: "ABI
// magic + version tags are embedded in every wire format").
func HeaderSurface(v Version) string {
	debugFields := ""
	if v == V2 {
		debugFields = "\n  uint32_t aid; uint32_t bid; uint32_t off; /* debug provenance, v2 */"
	}
	return "" +
		"/* x07 value ABI " + string(v) + " -- generated, do not edit by hand */\n" +
		"typedef struct { uint8_t* ptr; uint32_t len; } ev_bytes;\n" +
		"typedef struct { uint8_t* ptr; uint32_t len;" + debugFields + " } ev_bytes_view;\n" +
		"typedef struct { uint8_t* data; uint32_t len; uint32_t cap;" + debugFields + " } ev_vec_u8;\n" +
		"typedef struct { int32_t tag; union { int32_t ok; int32_t err; } v; } ev_result_i32; /* tag=0 Err, tag=1 Ok */\n" +
		"typedef struct { int32_t tag; union { ev_bytes ok; int32_t err; } v; } ev_result_bytes;\n" +
		"typedef struct { int32_t tag; int32_t v; } ev_option_i32; /* tag=0 None, tag=1 Some */\n" +
		"typedef struct { int32_t tag; ev_bytes v; } ev_option_bytes;\n" +
		"typedef struct { uint32_t data; uint32_t vtable; } ev_iface;\n" +
		"typedef struct {\n" +
		"  void* (*alloc)(void* ctx, uint32_t n);\n" +
		"  void* (*realloc)(void* ctx, void* p, uint32_t n);\n" +
		"  void  (*free)(void* ctx, void* p);\n" +
		"  void* ctx;\n" +
		"} ev_allocator;\n" +
		"void ev_trap(int32_t code);\n" +
		"ev_bytes ev_bytes_alloc(uint32_t n);\n"
}
