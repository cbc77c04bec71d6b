package local

// GPUCapability reports whether this build was compiled with GPU
// acceleration support, and names the backend. This is a compile-time
// flag rather than a runtime probe: whisper.cpp's GPU path is selected at
// build time via its own build tags, and a binary built without them
// cannot offload regardless of the hardware present.
//
// This default build carries no GPU backend; builds that link whisper.cpp
// with CUDA or Vulkan support would replace this file (build-tag gated)
// with one reporting the corresponding capability.
func GPUCapability() (available bool, backend string) {
	return false, "None"
}
