// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package deviceconfig

import (
	"math"
	"strconv"

	"github.com/relabs-tech/xrone-go/internal/xerr"
)

// node is a position in the decoded JSON tree, carrying the JSON-path
// string used to anchor schema diagnostics (e.g. "$.display.left_display").
type node struct {
	path string
	v    interface{}
}

func root(v interface{}) node {
	return node{path: "$", v: v}
}

func schemaErr(path, msg string) error {
	return &xerr.Error{Kind: xerr.KindSchemaValidation, Msg: msg, Path: path}
}

func (n node) obj(key string) (node, error) {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return node{}, schemaErr(n.path, "expected an object")
	}
	child, present := m[key]
	if !present {
		return node{}, schemaErr(n.path+"."+key, "missing required field")
	}
	return node{path: n.path + "." + key, v: child}, nil
}

func (n node) optObj(key string) (node, bool) {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return node{}, false
	}
	child, present := m[key]
	if !present {
		return node{}, false
	}
	return node{path: n.path + "." + key, v: child}, true
}

func (n node) str() (string, error) {
	s, ok := n.v.(string)
	if !ok {
		return "", schemaErr(n.path, "expected a string")
	}
	return s, nil
}

func (n node) num() (float64, error) {
	f, ok := n.v.(float64)
	if !ok {
		return 0, schemaErr(n.path, "expected a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, schemaErr(n.path, "must be finite")
	}
	return f, nil
}

func (n node) integer() (int, error) {
	f, err := n.num()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, schemaErr(n.path, "must be an integer")
	}
	return int(f), nil
}

func (n node) arr() ([]interface{}, error) {
	a, ok := n.v.([]interface{})
	if !ok {
		return nil, schemaErr(n.path, "expected an array")
	}
	return a, nil
}

// vec reads n as a JSON array of exactly arity finite numbers.
func (n node) vec(arity int) ([]float64, error) {
	a, err := n.arr()
	if err != nil {
		return nil, err
	}
	if len(a) != arity {
		return nil, schemaErr(n.path, "wrong arity")
	}
	out := make([]float64, arity)
	for i, e := range a {
		f, ok := e.(float64)
		if !ok {
			return nil, schemaErr(elemPath(n.path, i), "expected a number")
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, schemaErr(elemPath(n.path, i), "must be finite")
		}
		out[i] = f
	}
	return out, nil
}

func elemPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func (n node) vec2() (Vec2, error) {
	v, err := n.vec(2)
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{v[0], v[1]}, nil
}

func (n node) vec3() (Vec3, error) {
	v, err := n.vec(3)
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{v[0], v[1], v[2]}, nil
}

func (n node) vec4() (Vec4, error) {
	v, err := n.vec(4)
	if err != nil {
		return Vec4{}, err
	}
	return Vec4{v[0], v[1], v[2], v[3]}, nil
}

func (n node) vec5() (Vec5, error) {
	v, err := n.vec(5)
	if err != nil {
		return Vec5{}, err
	}
	return Vec5{v[0], v[1], v[2], v[3], v[4]}, nil
}

func (n node) mat3x3() (Mat3x3, error) {
	v, err := n.vec(9)
	if err != nil {
		return Mat3x3{}, err
	}
	var m Mat3x3
	copy(m[:], v)
	return m, nil
}

func (n node) mat4x4() (Mat4x4, error) {
	v, err := n.vec(16)
	if err != nil {
		return Mat4x4{}, err
	}
	var m Mat4x4
	copy(m[:], v)
	return m, nil
}
