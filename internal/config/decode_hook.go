// Copyright 2024 Google Inc. All Rights Reserved.
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

package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// logFilter is the type of Config.LogFilter, giving the decode hook below a
// concrete target type to recognize and validate against.
type logFilter string

var validLogFilters = []string{"trace", "debug", "info", "warn", "warning", "error"}

func hookFunc() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(logFilter("")) {
			return data, nil
		}
		s := strings.ToLower(data.(string))
		if s == "" {
			return s, nil
		}
		for _, v := range validLogFilters {
			if s == v {
				return s, nil
			}
		}
		return nil, fmt.Errorf("config: invalid log-filter %q", s)
	}
}

// decodeHook composes the mount daemon's validation hook with mapstructure's
// default string-to-duration and string-to-slice hooks.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		hookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
