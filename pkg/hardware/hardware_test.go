package hardware

import "testing"

func TestRecommendConcurrency(t *testing.T) {
	const gb = 1 << 30

	cases := []struct {
		name    string
		threads int
		ram     uint64
		want    int
	}{
		{"single core", 1, 8 * gb, 1},
		{"dual core", 2, 8 * gb, 1},
		{"quad core", 4, 8 * gb, 2},
		{"eight threads", 8, 16 * gb, 4},
		{"big box capped at 8", 64, 256 * gb, 8},
		{"low memory forces 1", 8, 1 * gb, 1},
		{"unknown memory uses threads", 8, 0, 4},
	}
	for _, tc := range cases {
		got := RecommendConcurrency(Info{CPUThreads: tc.threads, RAMBytes: tc.ram})
		if got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestDetect_AlwaysPopulated(t *testing.T) {
	info := Detect()
	if info.CPUThreads < 1 {
		t.Errorf("Expected at least one CPU thread, got %d", info.CPUThreads)
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("OS/arch missing: %q %q", info.OS, info.Arch)
	}
}

func TestDiskUsage_NeverErrors(t *testing.T) {
	// A nonsense path yields a zero report, not a panic or error
	usage := DiskUsage("/definitely/not/a/mount")
	if usage.Path != "/definitely/not/a/mount" {
		t.Errorf("Path not echoed: %s", usage.Path)
	}
	if usage.TotalBytes != 0 {
		t.Errorf("Expected zero usage for bad path, got %d", usage.TotalBytes)
	}
}
