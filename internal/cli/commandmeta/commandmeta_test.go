package commandmeta

import "testing"

func TestEmitsExecutionStatusPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path string
		want bool
	}{
		{path: "liveops config add", want: true},
		{path: "liveops config use", want: true},
		{path: "liveops config delete", want: true},
		{path: "liveops config list", want: false},
		{path: "liveops deploy", want: false},
		{path: "liveops fetch", want: false},
	}

	for _, testCase := range testCases {
		if got := EmitsExecutionStatusPath(testCase.path); got != testCase.want {
			t.Fatalf("EmitsExecutionStatusPath(%q) = %t, want %t", testCase.path, got, testCase.want)
		}
	}
}
