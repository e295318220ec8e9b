package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listsUnit = `
[unit]
name = "Lists"

[[scope]]
id = "file"
kind = "file"

[[scope]]
id = "list"
kind = "type"
parent = "file"
type = "TList"

[[scope]]
id = "plain"
kind = "type"
parent = "file"
type = "TPlainList"

[[decl]]
id = "TList"
kind = "type"
name = "TList"
scope = "file"
type_kind = "class"
type_params = ["T"]
token = 10

[[decl]]
id = "First"
kind = "variable"
name = "First"
scope = "list"
role = "field"
type = "T"
token = 11

[[decl]]
id = "Count"
kind = "variable"
name = "Count"
scope = "list"
role = "field"
type = "Integer"
token = 12

[[decl]]
id = "Get"
kind = "routine"
name = "Get"
scope = "list"
routine_kind = "function"
result = "T"
params = [{ name = "Index", type = "Integer" }]
token = 13

[[decl]]
id = "Create"
kind = "routine"
name = "Create"
scope = "list"
routine_kind = "constructor"
token = 14

[[decl]]
id = "TPlainList"
kind = "type"
name = "TList"
scope = "file"
type_kind = "class"
token = 20

[[decl]]
id = "PlainCount"
kind = "variable"
name = "Count"
scope = "plain"
role = "field"
type = "Integer"
token = 21
`

const genericAppUnit = `
[unit]
name = "Client"

[[uses]]
name = "Shapes"

[[uses]]
name = "Lists"

[[scope]]
id = "file"
kind = "file"

[[decl]]
id = "L"
kind = "variable"
name = "L"
scope = "file"
type = "TList<TCircle>"

[[occurrence]]
id = "l1"
name = "L"
scope = "file"
token = 50

[[occurrence]]
id = "first"
name = "First"
scope = "file"
qualifier = "l1"
token = 51

[[occurrence]]
id = "radius"
name = "Radius"
scope = "file"
qualifier = "first"
token = 52

[[occurrence]]
id = "l2"
name = "L"
scope = "file"
token = 60

[[occurrence]]
id = "get"
name = "Get"
scope = "file"
qualifier = "l2"
invocation = true
arity = 1
token = 61

[[occurrence]]
id = "get_area"
name = "Area"
scope = "file"
qualifier = "get"
token = 62

[[occurrence]]
id = "generic"
name = "TList"
scope = "file"
type_args = ["TShape"]
token = 70

[[occurrence]]
id = "create"
name = "Create"
scope = "file"
qualifier = "generic"
token = 71

[[occurrence]]
id = "create_first"
name = "First"
scope = "file"
qualifier = "create"
token = 72

[[occurrence]]
id = "plain"
name = "TList"
scope = "file"
token = 80

[[occurrence]]
id = "plain_count"
name = "Count"
scope = "file"
qualifier = "plain"
token = 81
`

func TestGenericInstantiation(t *testing.T) {
	h := bindUnits(t, withSystem, systemUnit, shapesUnit, listsUnit, genericAppUnit)

	l := h.table.Decl(h.decl("Client", "L")).Variable()
	assert.Equal(t, h.decl("Lists", "TList"), l.TypeDecl, "arity selects the generic list")

	assert.Equal(t, "Lists:First", h.boundTo("Client", "first"))
	assert.Equal(t, "First: TCircle", h.resolution("Client", "first").Instance)
	assert.Equal(t, "Shapes:Radius", h.boundTo("Client", "radius"))

	assert.Equal(t, "Lists:Get", h.boundTo("Client", "get"))
	assert.Equal(t, "Get(Integer): TCircle", h.resolution("Client", "get").Instance)
	assert.Equal(t, "Shapes:Area", h.boundTo("Client", "get_area"))

	assert.Equal(t, "Lists:TList", h.boundTo("Client", "generic"))
	assert.Equal(t, "TList<TShape>", h.resolution("Client", "generic").Instance)
	assert.Equal(t, "Lists:Create", h.boundTo("Client", "create"))
	assert.Equal(t, "", h.resolution("Client", "create").Instance, "constructor mentions no parameter")
	assert.Equal(t, "Lists:First", h.boundTo("Client", "create_first"))
	assert.Equal(t, "First: TShape", h.resolution("Client", "create_first").Instance)

	assert.Equal(t, "Lists:TPlainList", h.boundTo("Client", "plain"), "no type arguments prefers the plain type")
	assert.Equal(t, "Lists:PlainCount", h.boundTo("Client", "plain_count"))
}

func TestGenericBaseIsNotModified(t *testing.T) {
	h := bindUnits(t, withSystem, systemUnit, shapesUnit, listsUnit, genericAppUnit)

	first := h.table.Decl(h.decl("Lists", "First"))
	require.NotNil(t, first)
	assert.Equal(t, "T", first.Variable().Type.String())
	assert.False(t, first.IsSpecialized())

	tp := h.table.Decl(h.decl("Lists", "$tp:TList:T"))
	require.NotNil(t, tp)
	assert.True(t, tp.IsImplicit())
	assert.Equal(t, h.decl("Lists", "$tp:TList:T"), first.Variable().TypeDecl, "fields typed by a parameter link to it")
}
