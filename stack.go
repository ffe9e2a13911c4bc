// Copyright 2025 Patrick J. Scruggs
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

package slogproblem

import (
	"errors"
	"runtime"
	"strconv"
	"strings"
)

const maxStackFrames = 64

// stackTracer is implemented by errors that remember where they were created,
// such as those produced by github.com/pkg/errors.
type stackTracer interface {
	StackTrace() []uintptr
}

// SkipInternalStackFrame reports whether a frame belongs to the runtime, to
// net/http's handler plumbing, or to this module, and should be hidden from
// reported panic stacks.
func SkipInternalStackFrame(funcName string) bool {
	switch {
	case funcName == "":
		return false
	case strings.HasPrefix(funcName, "runtime."),
		strings.HasPrefix(funcName, "runtime/debug."),
		strings.HasPrefix(funcName, "panic("):
		return true
	case strings.Contains(funcName, ".Test"):
		return false
	}
	for _, prefix := range internalPackages {
		if strings.HasPrefix(funcName, prefix) {
			return true
		}
	}
	return false
}

var internalPackages = []string{
	"github.com/pjscruggs/slogproblem.",
	"github.com/pjscruggs/slogproblem/problem.",
	"github.com/pjscruggs/slogproblem/requestlog.",
	"github.com/pjscruggs/slogproblem/slogproblemhttp.",
	"net/http.HandlerFunc.ServeHTTP",
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp.",
}

// CaptureStack records the calling goroutine's stack. Leading frames for
// which skip returns true are dropped (SkipInternalStackFrame when nil), so a
// deferred recover sees the frame that panicked at the top. It returns the
// formatted trace and the first frame kept.
func CaptureStack(skip func(string) bool) (string, runtime.Frame) {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(1, pcs)
	if n == 0 {
		return "", runtime.Frame{}
	}
	if skip == nil {
		skip = SkipInternalStackFrame
	}
	frames := dropLeadingFrames(framesOf(pcs[:n]), skip)
	if len(frames) == 0 {
		return "", runtime.Frame{}
	}
	return formatStack(frames), frames[0]
}

// stackOf returns the stack remembered by err, if any error in its chain
// carries one.
func stackOf(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) && pe.Stack != "" {
		return pe.Stack
	}
	var st stackTracer
	if errors.As(err, &st) {
		return formatStack(framesOf(st.StackTrace()))
	}
	return ""
}

// framesOf expands pcs, inlined calls included, dropping runtime.goexit.
func framesOf(pcs []uintptr) []runtime.Frame {
	if len(pcs) == 0 {
		return nil
	}
	out := make([]runtime.Frame, 0, len(pcs))
	frames := runtime.CallersFrames(pcs)
	for len(out) < maxStackFrames {
		frame, more := frames.Next()
		if frame.Function != "" && frame.Function != "runtime.goexit" {
			out = append(out, frame)
		}
		if !more {
			break
		}
	}
	return out
}

// dropLeadingFrames removes the prefix of frames whose functions match skip.
// If every frame matches, frames is returned untouched.
func dropLeadingFrames(frames []runtime.Frame, skip func(string) bool) []runtime.Frame {
	for i, frame := range frames {
		if !skip(frame.Function) {
			return frames[i:]
		}
	}
	return frames
}

// formatStack renders frames the way runtime/debug.Stack does, headed by the
// current goroutine line.
func formatStack(frames []runtime.Frame) string {
	if len(frames) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(frames) * 64)
	sb.WriteString(goroutineHeader())
	sb.WriteByte('\n')
	for _, frame := range frames {
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(frame.Line))
		if frame.Entry != 0 && frame.PC > frame.Entry {
			sb.WriteString(" +0x")
			sb.WriteString(strconv.FormatUint(uint64(frame.PC-frame.Entry), 16))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// goroutineHeader returns the "goroutine N [running]:" line for the caller.
func goroutineHeader() string {
	var buf [128]byte
	n := runtime.Stack(buf[:], false)
	header, _, _ := strings.Cut(string(buf[:n]), "\n")
	header = strings.TrimSpace(header)
	if header == "" {
		return "goroutine 0 [running]:"
	}
	return header
}
