/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package roidoc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "roibridge/internal/log"
)

//go:embed roi.schema.json
var schemaBytes []byte

// Encode renders the document as indented JSON with a trailing newline.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates document bytes.
func Decode(data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("document schema version %d is newer than supported %d", doc.SchemaVersion, SchemaVersion)
	}
	return &doc, nil
}

// Validate checks document bytes against the embedded JSON schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if !result.Valid() {
		l := applog.WithComponent("roidoc")
		for _, e := range result.Errors() {
			l.Warn("schema violation", slog.String("detail", e.String()))
		}
		return fmt.Errorf("document does not conform to schema (%d errors)", len(result.Errors()))
	}
	return nil
}

// Save writes the document to path, creating parent directories as needed.
// The write goes through a temp file and rename so a crash never leaves a
// truncated document behind.
func Save(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// Load reads and validates a document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}
