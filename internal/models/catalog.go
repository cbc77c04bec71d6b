// Package models implements the model catalog and downloader:
// background goroutine download, atomic temp-then-rename, streaming
// checksum verification, a disk space precheck, and a cooperative
// per-name cancellation registry, with progress reported over the
// event bus.
package models

import (
	"crypto/tls"
	"net/http"
)

// Descriptor describes one known whisper.cpp model variant.
type Descriptor struct {
	Name         string // e.g. "base", "small-q5_1"
	Quantization string // "" for unquantized f16
	FileName     string // e.g. "ggml-base.bin"
	SizeBytes    int64
	SHA256       string // hex-encoded expected checksum; "" if unavailable
}

// Catalog lists the supported size x quantization grid in display order.
// Checksums come from the upstream mirror's Git LFS metadata. Cells with
// an empty SHA256 have no published checksum upstream (medium has only a
// q5_0 variant, large has no quantized uploads); those are downloaded
// with verification skipped and a logged warning rather than refused;
// see DESIGN.md for the policy decision.
var Catalog = []Descriptor{
	{Name: "tiny", FileName: "ggml-tiny.bin", SizeBytes: 75_000_000,
		SHA256: "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21"},
	{Name: "tiny-q8_0", Quantization: "q8_0", FileName: "ggml-tiny-q8_0.bin", SizeBytes: 43_000_000,
		SHA256: "c2085835d3f50733e2ff6e4b41ae8a2b8d8110461e18821b09a15c40c42d1cca"},
	{Name: "tiny-q5_1", Quantization: "q5_1", FileName: "ggml-tiny-q5_1.bin", SizeBytes: 32_000_000,
		SHA256: "818710568da3ca15689e31a743197b520007872ff9576237bda97bd1b469c3d7"},

	{Name: "base", FileName: "ggml-base.bin", SizeBytes: 142_000_000,
		SHA256: "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe"},
	{Name: "base-q8_0", Quantization: "q8_0", FileName: "ggml-base-q8_0.bin", SizeBytes: 81_000_000,
		SHA256: "c577b9a86e7e048a0b7eada054f4dd79a56bbfa911fbdacf900ac5b567cbb7d9"},
	{Name: "base-q5_1", Quantization: "q5_1", FileName: "ggml-base-q5_1.bin", SizeBytes: 60_000_000,
		SHA256: "422f1ae452ade6f30a004d7e5c6a43195e4433bc370bf23fac9cc591f01a8898"},

	{Name: "small", FileName: "ggml-small.bin", SizeBytes: 466_000_000,
		SHA256: "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b"},
	{Name: "small-q8_0", Quantization: "q8_0", FileName: "ggml-small-q8_0.bin", SizeBytes: 264_000_000,
		SHA256: "49c8fb02b65e6049d5fa6c04f81f53b867b5ec9540406812c643f177317f779f"},
	{Name: "small-q5_1", Quantization: "q5_1", FileName: "ggml-small-q5_1.bin", SizeBytes: 190_000_000,
		SHA256: "ae85e4a935d7a567bd102fe55afc16bb595bdb618e11b2fc7591bc08120411bb"},

	{Name: "medium", FileName: "ggml-medium.bin", SizeBytes: 1_500_000_000,
		SHA256: "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208"},
	{Name: "medium-q8_0", Quantization: "q8_0", FileName: "ggml-medium-q8_0.bin", SizeBytes: 823_000_000,
		SHA256: "42a1ffcbe4167d224232443396968db4d02d4e8e87e213d3ee2e03095dea6502"},
	// The upstream mirror only publishes a q5_0 quantization of medium.
	{Name: "medium-q5_1", Quantization: "q5_1", FileName: "ggml-medium-q5_1.bin", SizeBytes: 539_000_000, SHA256: ""},

	{Name: "large", FileName: "ggml-large.bin", SizeBytes: 2_900_000_000,
		SHA256: "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2"},
	{Name: "large-q8_0", Quantization: "q8_0", FileName: "ggml-large-q8_0.bin", SizeBytes: 1_660_000_000, SHA256: ""},
	{Name: "large-q5_1", Quantization: "q5_1", FileName: "ggml-large-q5_1.bin", SizeBytes: 1_080_000_000, SHA256: ""},
}

// Find looks up a Descriptor by name.
func Find(name string) (Descriptor, bool) {
	for _, d := range Catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// httpClient forces HTTP/1.1; the HuggingFace CDN sometimes sends
// HTTP/2 GOAWAY frames mid-transfer that crash Go's internal h2 read
// loop.
var httpClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		TLSNextProto:    make(map[string]func(string, *tls.Conn) http.RoundTripper),
	},
}
