/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Colors switch off by themselves when the output is not a terminal or
// NO_COLOR is set.
var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// success prints a line in green.
func success(w io.Writer, format string, a ...any) {
	_, _ = green.Fprintf(w, format+"\n", a...)
}

func warning(w io.Writer, format string, a ...any) {
	_, _ = yellow.Fprintf(w, format+"\n", a...)
}

func info(w io.Writer, format string, a ...any) {
	_, _ = cyan.Fprintf(w, format+"\n", a...)
}

// failure prints err in red as the last line of a failed command.
func failure(w io.Writer, err error) {
	_, _ = red.Fprint(w, "Error: ")
	_, _ = fmt.Fprintln(w, err)
}
