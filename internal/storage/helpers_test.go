package storage

import "github.com/brunocserra/extincor-pdf-function/internal/config"

func testBlobConfig(url, key string) config.BlobConfig {
	return config.BlobConfig{
		SupabaseURL: url,
		SupabaseKey: key,
		Container:   "pdf-reports",
		Prefix:      "relatorios/",
	}
}
