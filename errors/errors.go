/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package errors provides the error taxonomy shared by the famd daemon and
// the famclient library: a numeric CodeError classification, an optional
// parent chain, and compatibility with the standard errors.Is/errors.As.
//
// It is a trimmed adaptation of github.com/nabbar/golib/errors: the pool,
// gin-binding and CodeErrorTrace formatting surface of that package is not
// needed here, only the code+chain+Is/As core that the rest of famd builds
// its own taxonomy on (see Code().
package errors

import (
	"errors"
	"fmt"
)

// CodeError classifies an Error the way liberr.CodeError does (a numeric
// tag similar to an HTTP status), scoped here to the taxonomy in spec §7.
type CodeError uint16

const (
	UnknownError CodeError = iota
	ArgError
	FilenameError
	ConnectError
	AuthError
	MemoryError
	UnimplementedError
	ProtocolError
)

var codeMessage = map[CodeError]string{
	UnknownError:       "unknown error",
	ArgError:           "bad argument",
	FilenameError:      "bad filename",
	ConnectError:       "connection failure",
	AuthError:          "authentication failure",
	MemoryError:        "memory allocation failure",
	UnimplementedError: "unimplemented function",
	ProtocolError:      "protocol error",
}

// String returns the canonical human-readable message for the code.
func (c CodeError) String() string {
	if m, ok := codeMessage[c]; ok {
		return m
	}
	return codeMessage[UnknownError]
}

// Error is the interface every famd error value satisfies: a normal Go
// error plus a CodeError classification and an optional parent chain.
type Error interface {
	error
	Code() CodeError
	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	Parent() error
	Unwrap() error
}

type ers struct {
	code CodeError
	msg  string
	parent error
}

// New builds an Error with the given code, message and optional parent.
// A nil parent is valid: the error simply terminates the chain.
func New(code CodeError, msg string, parent error) Error {
	return &ers{code: code, msg: msg, parent: parent}
}

// Wrap attaches code to an existing error, preserving it as the parent.
func Wrap(code CodeError, err error) Error {
	if err == nil {
		return nil
	}
	return &ers{code: code, msg: code.String(), parent: err}
}

func (e *ers) Error() string {
	if e == nil {
		return ""
	}
	if e.msg == "" {
		e.msg = e.code.String()
	}
	if e.parent != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
	}
	return e.msg
}

func (e *ers) Code() CodeError {
	if e == nil {
		return UnknownError
	}
	return e.code
}

func (e *ers) IsCode(code CodeError) bool {
	return e != nil && e.code == code
}

func (e *ers) HasCode(code CodeError) bool {
	for cur := error(e); cur != nil; {
		if er, ok := cur.(*ers); ok {
			if er.code == code {
				return true
			}
			cur = er.parent
			continue
		}
		break
	}
	return false
}

func (e *ers) Parent() error {
	if e == nil {
		return nil
	}
	return e.parent
}

func (e *ers) Unwrap() error {
	return e.Parent()
}

// Is reports whether target is err itself or an error in err's parent
// chain, by the standard errors.Is identity match; it does not compare
// CodeError values (use IsCode for that). Wrapping one of the exported
// sentinels keeps it matchable this way.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsCode reports whether err (or any error in its chain) carries code.
func IsCode(err error, code CodeError) bool {
	var e Error
	if errors.As(err, &e) {
		return e.HasCode(code)
	}
	return false
}
