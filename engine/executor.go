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

package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
)

var (
	errNotVisible = errors.New("element not visible")
	errDisabled   = errors.New("element not enabled")
)

// Perform runs the native operation of in on el. Scrolling el into view
// first is best effort.
func Perform(ctx context.Context, el Element, in Intent, logger *log.Logger) (string, error) {
	if err := el.ScrollIntoView(ctx); err != nil && logger != nil {
		logger.Debug("scroll into view", "intent", in, "err", err)
	}
	switch in.Op {
	case OpClick:
		return "", el.Click(ctx)
	case OpTypeText:
		return "", el.SendKeys(ctx, in.Arg)
	case OpClearAndType:
		if err := el.Clear(ctx); err != nil {
			return "", fmt.Errorf("clear: %w", err)
		}
		return "", el.SendKeys(ctx, in.Arg)
	case OpPressKey:
		return "", el.PressKey(ctx, in.Arg)
	case OpReadText:
		return el.Text(ctx)
	case OpReadAttribute:
		return el.Attribute(ctx, in.Arg)
	case OpCheckVisible:
		v, err := el.Visible(ctx)
		if err != nil {
			return "", err
		}
		if !v {
			return strconv.FormatBool(v), errNotVisible
		}
		return strconv.FormatBool(v), nil
	case OpCheckEnabled:
		v, err := el.Enabled(ctx)
		if err != nil {
			return "", err
		}
		if !v {
			return strconv.FormatBool(v), errDisabled
		}
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("unsupported intent %s", in)
}
