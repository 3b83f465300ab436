package gcsuploader

import (
	"context"
	"testing"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://scrap-exports/exports/j1/report.csv", "scrap-exports", "exports/j1/report.csv", false},
		{"gs://bucket/file.xlsx", "bucket", "file.xlsx", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/file", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI(%q) = %q, %q", tt.uri, bucket, object)
			}
		})
	}
}

func TestGCSURI(t *testing.T) {
	if got := GCSURI("b", "/exports/x.csv"); got != "gs://b/exports/x.csv" {
		t.Errorf("GCSURI() = %q", got)
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/exports/j1/scrap-records.csv": "scrap-records.csv",
		"gs://bucket/report.xlsx":                  "report.xlsx",
		"gs://bucket":                              "bucket",
	}
	for uri, want := range tests {
		if got := ExtractFilenameFromGCSURI(uri); got != want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestUploadBytes_RequiresBucket(t *testing.T) {
	if _, err := UploadBytes(context.Background(), "", "exports/x.csv", "text/csv", []byte("x")); err == nil {
		t.Error("expected an error without a bucket")
	}
}

func TestFetchFromGCS_InvalidURI(t *testing.T) {
	if _, err := FetchFromGCS(context.Background(), "http://example.com/x"); err == nil {
		t.Error("expected an error for a non-gs URI")
	}
}
