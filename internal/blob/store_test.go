package blob

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{uri: "s3://docs/contracts/a.pdf", bucket: "docs", key: "contracts/a.pdf"},
		{uri: "s3://docs/a.pdf", bucket: "docs", key: "a.pdf"},
		{uri: "https://example.com/a.pdf", wantErr: true},
		{uri: "s3://docs", wantErr: true},
		{uri: "s3:///a.pdf", wantErr: true},
		{uri: "s3://docs/", wantErr: true},
		{uri: "", wantErr: true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseURI(%q): expected error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURI(%q): %v", tt.uri, err)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseURI(%q) = %q, %q; want %q, %q", tt.uri, bucket, key, tt.bucket, tt.key)
		}
	}
}
