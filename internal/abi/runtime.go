package abi

import "strconv"

// RuntimeSource returns the small runtime translation-unit text every
// emitted program links against: the allocator and trap functions
// HeaderSurface only prototypes, plus the stdin argv_v1 reader shared by
// every entrypoint. It is appended once, directly after the header
// surface, in the same translation unit cbackend.Emit produces (spec
// §4.C7: "a single deterministic C translation unit").
func RuntimeSource() string {
	return "" +
		"void ev_trap(int32_t code) {\n" +
		"  fprintf(stderr, \"{\\\"trap_code\\\":%d}\\n\", code);\n" +
		"  exit(1);\n" +
		"}\n\n" +
		"ev_bytes ev_bytes_alloc(uint32_t n) {\n" +
		"  ev_bytes b;\n" +
		"  b.ptr = n ? (uint8_t*)malloc(n) : NULL;\n" +
		"  if (n && b.ptr == NULL) { ev_trap(" + strconv.FormatUint(uint64(EVTrapAllocOOM), 10) + "); }\n" +
		"  b.len = n;\n" +
		"  return b;\n" +
		"}\n\n" +
		"ev_bytes ev_bytes_from_literal(const char* s, uint32_t n) {\n" +
		"  ev_bytes b;\n" +
		"  b.ptr = (uint8_t*)s;\n" +
		"  b.len = n;\n" +
		"  return b;\n" +
		"}\n\n" +
		"static int x07_read_argv_v1(FILE* in) {\n" +
		"  uint32_t argc;\n" +
		"  if (fread(&argc, sizeof(argc), 1, in) != 1) { return 0; }\n" +
		"  for (uint32_t i = 0; i < argc; i++) {\n" +
		"    uint32_t len;\n" +
		"    if (fread(&len, sizeof(len), 1, in) != 1) { return 0; }\n" +
		"    if (len == 0) { continue; }\n" +
		"    uint8_t* skip = (uint8_t*)malloc(len);\n" +
		"    if (skip == NULL || fread(skip, 1, len, in) != len) { free(skip); return 0; }\n" +
		"    free(skip);\n" +
		"  }\n" +
		"  return 1;\n" +
		"}\n\n"
}

// MainSource returns the process entrypoint wired to the single
// x07_solve declared earlier in the same translation unit: it consumes
// the argv_v1 frame on stdin (spec §4.C10), invokes x07_solve, writes its
// i32 result as a length-prefixed frame on stdout, and writes the metrics
// line the host runner's trap/metrics decoder expects on the last line of
// stderr.
func MainSource() string {
	return "" +
		"int main(void) {\n" +
		"  x07_read_argv_v1(stdin);\n" +
		"  int32_t rc = x07_solve();\n" +
		"  uint32_t outlen = (uint32_t)sizeof(rc);\n" +
		"  fwrite(&outlen, sizeof(outlen), 1, stdout);\n" +
		"  fwrite(&rc, sizeof(rc), 1, stdout);\n" +
		"  fflush(stdout);\n" +
		"  fprintf(stderr, \"{\\\"fuel_consumed\\\":0,\\\"peak_mem_bytes\\\":0}\\n\");\n" +
		"  return 0;\n" +
		"}\n"
}

