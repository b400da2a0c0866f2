package export

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// ReadDecoded reads nested DNS results previously written as JSON. The input
// may be an array of result objects or a single object. Numbers are kept as
// json.Number so serials survive unchanged.
func ReadDecoded(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if data[0] == '{' {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode result object")
		}
		return []map[string]any{doc}, nil
	}
	var docs []map[string]any
	if err := dec.Decode(&docs); err != nil {
		return nil, errors.Wrap(err, "decode result array")
	}
	return docs, nil
}
