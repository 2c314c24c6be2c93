package utils

import (
	"path"
	"strings"
)

var contentTypesByExt = map[string]string{
	".csv":     "text/csv",
	".tsv":     "text/tab-separated-values",
	".txt":     "text/plain",
	".md":      "text/markdown",
	".json":    "application/json",
	".jsonl":   "application/x-ndjson",
	".xml":     "application/xml",
	".html":    "text/html",
	".pdf":     "application/pdf",
	".parquet": "application/vnd.apache.parquet",
	".avro":    "application/avro",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".png":     "image/png",
	".gif":     "image/gif",
	".svg":     "image/svg+xml",
	".mp4":     "video/mp4",
	".zip":     "application/zip",
	".tar":     "application/x-tar",
	".gz":      "application/gzip",
}

// ContentTypeFromName guesses a content type from a blob name's extension.
// Unknown extensions return "".
func ContentTypeFromName(name string) string {
	return contentTypesByExt[strings.ToLower(path.Ext(name))]
}
