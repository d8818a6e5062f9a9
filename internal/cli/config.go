// Copyright 2022 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chainguard-dev/xyz/internal/usageerr"
)

// parseConfig parses --config's "k:v,k:v,..." syntax into a variant
// assignment map. An empty string yields a nil (no variant) map.
func parseConfig(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || k == "" {
			return nil, usageerr.New("cli: malformed --config assignment %q (want k:v)", pair)
		}
		out[k] = v
	}
	return out, nil
}

// readVarsFile parses --vars-file: a flat YAML map of extra
// configuration variables, merged into a package's configuration map
// before substitution.
func readVarsFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageerr.New("cli: read --vars-file %s: %v", path, err)
	}
	var vars map[string]string
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, usageerr.New("cli: parse --vars-file %s: %v", path, err)
	}
	return vars, nil
}

// readEnvFile parses --env-file: a dotenv file of extra environment
// variables, merged into every subprocess invocation's environment.
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, usageerr.New("cli: parse --env-file %s: %v", path, err)
	}
	return env, nil
}
