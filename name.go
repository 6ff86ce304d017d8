// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "strings"

const nullNamespace = ""

// name is a resolved Avro fullname: namespace + short name, computed per the
// namespace inheritance rules in Avro 1.10 §Names.
type name struct {
	fullName  string
	namespace string
}

func (n *name) String() string { return n.fullName }

// newName computes the fullname of a named schema node. nameAttr is the
// "name" JSON attribute (may itself contain dots). namespaceAttr is the
// explicit "namespace" JSON attribute, or "" if absent. enclosingNamespace is
// the nearest enclosing named type's namespace.
//
// Priority, per spec.md §3.2: (a) explicit namespace attribute, (b) a dotted
// prefix embedded in name, (c) the enclosing namespace. An explicit
// namespace attribute combined with a dotted name uses the attribute as the
// namespace and the part of name after its last dot as the short name.
func newName(nameAttr, namespaceAttr, enclosingNamespace string) *name {
	shortName := nameAttr
	dottedNamespace := nullNamespace
	if i := strings.LastIndexByte(nameAttr, '.'); i >= 0 {
		dottedNamespace = nameAttr[:i]
		shortName = nameAttr[i+1:]
	}

	ns := namespaceAttr
	if ns == nullNamespace {
		ns = dottedNamespace
	}
	if ns == nullNamespace {
		ns = enclosingNamespace
	}
	if ns == nullNamespace {
		return &name{fullName: shortName, namespace: nullNamespace}
	}
	return &name{fullName: ns + "." + shortName, namespace: ns}
}
