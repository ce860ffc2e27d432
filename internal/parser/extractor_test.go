package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contextrank/pkg/types"
)

func names(symbols []types.Symbol) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.Name)
	}
	return out
}

func findSymbol(t *testing.T, symbols []types.Symbol, name string) types.Symbol {
	t.Helper()
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	require.Failf(t, "symbol not found", "%q not in %v", name, names(symbols))
	return types.Symbol{}
}

func TestExtract_ScenarioController(t *testing.T) {
	controller := "import {getUser} from './userService'\nexport class UserController {}"
	service := "export function getUser(id){ return db.find(id) }"

	ct := Extract(controller, "src/userController.js")
	require.Len(t, ct.Imports, 1)
	assert.Equal(t, "getUser", ct.Imports[0].Name)
	assert.Equal(t, "./userService", ct.Imports[0].Module)
	assert.Equal(t, 1, ct.Imports[0].StartLine)
	assert.Equal(t, []string{"UserController"}, names(ct.Classes))
	assert.Equal(t, []string{"UserController"}, names(ct.Exports))
	assert.Equal(t, 2, ct.Classes[0].StartLine)
	assert.Equal(t, 2, ct.Classes[0].EndLine)

	st := Extract(service, "src/userService.js")
	require.Len(t, st.Functions, 1)
	fn := st.Functions[0]
	assert.Equal(t, "getUser", fn.Name)
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 1, fn.EndLine)
	assert.Equal(t, []string{"getUser"}, names(st.Exports))
}

func TestExtract_EmptyContent(t *testing.T) {
	table := Extract("", "empty.js")
	assert.True(t, table.Empty())
}

func TestExtract_Imports(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		line    string
		modules []string
		symbols []string
	}{
		{"es default", "a.js", "import React from 'react'", []string{"react"}, []string{"React"}},
		{"es named", "a.ts", `import { useState, useEffect as effect } from "react";`, []string{"react"}, []string{"useState", "effect"}},
		{"es namespace", "a.ts", "import * as api from './api'", []string{"./api"}, []string{"api"}},
		{"es type", "a.ts", "import type { User } from '../models/user'", []string{"../models/user"}, []string{"User"}},
		{"es side effect", "a.js", "import './styles.css'", []string{"./styles.css"}, []string{"styles"}},
		{"commonjs", "a.js", "const db = require('./db')", []string{"./db"}, []string{"db"}},
		{"commonjs destructure", "a.js", "const { find, save } = require('../repo')", []string{"../repo"}, []string{"find", "save"}},
		{"python from", "a.py", "from app.models import User, Order", []string{"app.models"}, []string{"User", "Order"}},
		{"python import", "a.py", "import os.path", []string{"os.path"}, []string{"path"}},
		{"python alias", "a.py", "import numpy as np", []string{"numpy"}, []string{"np"}},
		{"ruby", "a.rb", "require_relative 'billing/invoice'", []string{"billing/invoice"}, []string{"invoice"}},
		{"c include", "a.c", "#include <stdio.h>", []string{"stdio.h"}, []string{"stdio"}},
		{"go single", "a.go", `import "net/http"`, []string{"net/http"}, []string{"http"}},
		{"java", "A.java", "import java.util.List;", []string{"java.util.List"}, []string{"List"}},
		{"kotlin", "A.kt", "import com.shop.order.OrderService", []string{"com.shop.order.OrderService"}, []string{"OrderService"}},
		{"csharp", "A.cs", "using System.Text;", []string{"System.Text"}, []string{"Text"}},
		{"rust", "a.rs", "use std::collections::HashMap;", []string{"std::collections::HashMap"}, []string{"HashMap"}},
		{"rust group", "a.rs", "use crate::models::{User, Order};", []string{"crate::models"}, []string{"User", "Order"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Extract(tt.line, tt.path)
			assert.Equal(t, tt.modules, table.ImportModules())
			assert.Equal(t, tt.symbols, names(table.Imports))
		})
	}
}

func TestExtract_GoImportBlock(t *testing.T) {
	src := `package main

import (
	"fmt"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

func main() {
	fmt.Println("hi")
}
`
	table := Extract(src, "main.go")
	assert.Equal(t, []string{"fmt", "github.com/sirupsen/logrus", "modernc.org/sqlite"}, table.ImportModules())
	assert.Equal(t, []string{"fmt", "log", "sqlite"}, names(table.Imports))

	fn := findSymbol(t, table.Functions, "main")
	assert.Equal(t, 9, fn.StartLine)
	assert.Equal(t, 11, fn.EndLine)
}

func TestExtract_Exports(t *testing.T) {
	src := `export default function handler(req, res) {}
export const API_URL = 'x'
export { createOrder, cancelOrder as cancel }
module.exports = { getUser, updateUser };
exports.deleteUser = function () {}
export default Router;
`
	table := Extract(src, "routes.js")
	assert.Equal(t, []string{"handler", "API_URL", "createOrder", "cancel", "getUser", "updateUser", "deleteUser", "Router"},
		names(table.Exports))
}

func TestExtract_GoExports(t *testing.T) {
	src := `package billing

type Invoice struct {
	ID string
}

type total int

func (i *Invoice) Total() int {
	return 0
}

func helper() {}
`
	table := Extract(src, "billing/invoice.go")
	assert.Equal(t, []string{"Invoice", "Total"}, names(table.Exports))
	assert.Equal(t, []string{"Invoice"}, names(table.Classes))

	class := table.Classes[0]
	assert.Equal(t, 3, class.StartLine)
	assert.Equal(t, 5, class.EndLine)

	assert.Equal(t, []string{"Total", "helper"}, names(table.Functions))
	total := findSymbol(t, table.Functions, "Total")
	assert.Equal(t, 9, total.StartLine)
	assert.Equal(t, 11, total.EndLine)
}

func TestExtract_GoExportsOnlyForGoFiles(t *testing.T) {
	table := Extract("type Foo = string", "types.ts")
	assert.Empty(t, table.Exports)
}

func TestExtract_Classes(t *testing.T) {
	src := `class OrderService:
    pass

public abstract class PaymentGateway {
}

interface Repository<T> {
  find(id: string): T
}

pub struct Cart {
    items: Vec<Item>,
}

module Billing
end
`
	table := Extract(src, "mixed.txt")
	assert.Equal(t, []string{"OrderService", "PaymentGateway", "Repository", "Cart", "Billing"}, names(table.Classes))

	gw := findSymbol(t, table.Classes, "PaymentGateway")
	assert.Equal(t, 4, gw.StartLine)
	assert.Equal(t, 5, gw.EndLine)

	py := findSymbol(t, table.Classes, "OrderService")
	assert.Equal(t, py.StartLine, py.EndLine)
}

func TestExtract_FunctionForms(t *testing.T) {
	tests := []struct {
		name string
		path string
		line string
		want string
	}{
		{"js function", "a.js", "function getUser(id) {", "getUser"},
		{"js async", "a.js", "export async function loadOrders() {", "loadOrders"},
		{"generator", "a.js", "function* ids() {", "ids"},
		{"arrow", "a.js", "const formatPrice = (amount) => {", "formatPrice"},
		{"async arrow", "a.ts", "export const fetchCart = async (id: string): Promise<Cart> => {", "fetchCart"},
		{"single param arrow", "a.js", "const double = x => x * 2", "double"},
		{"function expression", "a.js", "var handler = function(req) {", "handler"},
		{"object method", "a.js", "  validate: function(input) {", "validate"},
		{"class method", "a.js", "  async saveUser(user) {", "saveUser"},
		{"python", "a.py", "def charge_card(self, amount):", "charge_card"},
		{"python async", "a.py", "async def send_email(to):", "send_email"},
		{"ruby self", "a.rb", "def self.find_by_email(email)", "find_by_email"},
		{"ruby predicate", "a.rb", "def valid?", "valid?"},
		{"go method", "a.go", "func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {", "Handle"},
		{"rust", "a.rs", "pub(crate) fn compute_tax(total: f64) -> f64 {", "compute_tax"},
		{"kotlin", "a.kt", "override fun onCreate(state: Bundle?) {", "onCreate"},
		{"java", "A.java", "public static void main(String[] args) {", "main"},
		{"c", "a.c", "int parse_header(const char *buf, size_t len) {", "parse_header"},
		{"perl", "a.pl", "sub process_order {", "process_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Extract(tt.line, tt.path)
			require.Len(t, table.Functions, 1, "functions: %v", names(table.Functions))
			assert.Equal(t, tt.want, table.Functions[0].Name)
		})
	}
}

func TestExtract_RejectsControlFlow(t *testing.T) {
	src := `if (user) {
}
for (const x of items) {
}
while (running) {
}
switch (kind) {
}
} catch (err) {
} else if (ok) {
return (a) {
new Promise((resolve) => {
describe("orders", function () {
go func() {
`
	table := Extract(src, "flow.js")
	assert.Empty(t, table.Functions, "got %v", names(table.Functions))
}

func TestExtract_DedupesNearbyDuplicates(t *testing.T) {
	src := `export function save(order) {
}
function save(order) {
}



function save(order) {
}
`
	table := Extract(src, "dup.js")
	require.Len(t, table.Functions, 2)
	assert.Equal(t, 1, table.Functions[0].StartLine)
	assert.Equal(t, 8, table.Functions[1].StartLine)
}

func TestExtract_BraceOnNextLine(t *testing.T) {
	src := `public void Process(Order order)
{
    if (order == null)
    {
        return;
    }
}
`
	table := Extract(src, "Processor.cs")
	fn := findSymbol(t, table.Functions, "Process")
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 7, fn.EndLine)
}

func TestExtract_UnclosedBlockRunsToEOF(t *testing.T) {
	src := "function broken() {\n  let x = 1\n"
	table := Extract(src, "broken.js")
	fn := findSymbol(t, table.Functions, "broken")
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 3, fn.EndLine)
}

func TestExtract_SymbolsValidate(t *testing.T) {
	src := `import { a } from './a'
export class Shop {
  open() {
    return 1
  }
}
def close():
    pass
`
	table := Extract(src, "shop.js")
	for _, group := range [][]types.Symbol{table.Classes, table.Functions, table.Imports, table.Exports} {
		for _, s := range group {
			assert.NoError(t, s.Validate(), s.Name)
		}
	}
}

func TestSafely_RecoversPanics(t *testing.T) {
	out, err := safely("functions", func() []types.Symbol {
		panic("boom")
	})
	assert.Nil(t, out)
	require.ErrorIs(t, err, ErrStageFailed)
	assert.Contains(t, err.Error(), "functions: boom")

	out, err = safely("imports", func() []types.Symbol {
		return []types.Symbol{{Name: "x"}}
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestExtractChecked_MatchesExtract(t *testing.T) {
	src := "import { query } from './db'\nexport function getOrder(id) { return query(id) }\n"
	table, err := ExtractChecked(src, "src/orderService.js")
	require.NoError(t, err)
	assert.Equal(t, Extract(src, "src/orderService.js"), table)

	empty, err := ExtractChecked("", "x.js")
	require.NoError(t, err)
	assert.Empty(t, empty.Functions)
}

func TestModuleBase(t *testing.T) {
	tests := map[string]string{
		"./services/userService": "userService",
		"../models/user.js":      "user",
		"lodash":                 "lodash",
		"java.util.List":         "List",
		"stdio.h":                "stdio",
		"std::io":                "io",
		"react-dom/client":       "client",
	}
	for in, want := range tests {
		assert.Equal(t, want, moduleBase(in), in)
	}
}
