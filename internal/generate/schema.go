/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/generate_response.json
var generateSchemaJSON []byte

//go:embed schema/ideas_response.json
var ideasSchemaJSON []byte

var (
	schemaOnce     sync.Once
	generateSchema *gojsonschema.Schema
	ideasSchema    *gojsonschema.Schema
	schemaErr      error
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		generateSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(generateSchemaJSON))
		if schemaErr != nil {
			return
		}
		ideasSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(ideasSchemaJSON))
	})
	return schemaErr
}

func validate(s *gojsonschema.Schema, body []byte) error {
	res, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("not json: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
}

func validateGenerate(body []byte) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	return validate(generateSchema, body)
}

func validateIdeas(body []byte) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	return validate(ideasSchema, body)
}
