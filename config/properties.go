// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// propertiesCodec reads and writes Java properties files. Dotted keys map
// to nested viper keys, so browser.headless=true is the same setting as the
// MASTERPROBE_BROWSER_HEADLESS variable.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	p, err := properties.Load(b, properties.UTF8)
	if err != nil {
		return err
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		path := strings.Split(key, ".")
		m := v
		for _, k := range path[:len(path)-1] {
			next, ok := m[k].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[k] = next
			}
			m = next
		}
		m[path[len(path)-1]] = value
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	flat := make(map[string]string)
	flatten("", v, flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := properties.NewProperties()
	for _, k := range keys {
		if _, _, err := p.Set(k, flat[k]); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(prefix string, m map[string]any, out map[string]string) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = fmt.Sprint(val)
	}
}

// newViper returns a viper instance that understands properties files in
// addition to its built-in formats.
func newViper() *viper.Viper {
	reg := viper.NewCodecRegistry()
	for _, ext := range []string{"properties", "props", "prop"} {
		if err := reg.RegisterCodec(ext, propertiesCodec{}); err != nil {
			panic(err)
		}
	}
	return viper.NewWithOptions(viper.WithCodecRegistry(reg))
}
