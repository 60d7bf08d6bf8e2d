package main

import (
	"context"
	"io"

	"cosmosdb-wrapper/internal/docstore"
	"cosmosdb-wrapper/internal/docstore/domain/model"
)

// demoStep is one line of the walkthrough report
type demoStep struct {
	Step   string      `json:"step"`
	Result interface{} `json:"result"`
}

// demo walks through the helpers on an orders container: get-or-create, upsert, lookups by
// id, uri and point read, a miss, and a parameterized query run through the async variants.
func demo(ctx context.Context, module *docstore.DocstoreModule, out io.Writer) error {
	uc := module.Usecase
	async := module.AsyncUsecase

	db, err := async.ResolveDatabase(ctx, module.Client, "orders").Await(ctx)
	if err != nil {
		return err
	}
	items, err := async.ResolveContainer(ctx, db, "items", "/customerId").Await(ctx)
	if err != nil {
		return err
	}

	var steps []demoStep
	record := func(step string, result interface{}) {
		steps = append(steps, demoStep{Step: step, Result: result})
	}

	for _, doc := range []model.Document{
		{"id": "1", "customerId": "A", "amount": 42, "uri": "/orders/1"},
		{"id": "2", "customerId": "B", "amount": 7, "uri": "/orders/2"},
	} {
		stored, err := uc.CreateItem(ctx, items, doc)
		if err != nil {
			return err
		}
		record("upsert "+stored["id"].(string), stored)
	}

	byID, err := uc.GetItemByID(ctx, items, "1")
	if err != nil {
		return err
	}
	record("get id 1", byID)

	byURI, err := uc.GetItemByURI(ctx, items, "/orders/2")
	if err != nil {
		return err
	}
	record("get uri /orders/2", byURI)

	point, err := uc.ReadItem(ctx, items, "1", "A")
	if err != nil {
		return err
	}
	record("read 1/A", point)

	missing, err := uc.GetItemByID(ctx, items, "missing")
	if err != nil {
		return err
	}
	record("get id missing", missing)

	large := async.QueryItems(ctx, items, model.NewQuery(
		"SELECT * FROM c WHERE c.amount > @min", model.Param("@min", 10)))
	all := async.ReadAllItems(ctx, items)

	largeDocs, err := large.Await(ctx)
	if err != nil {
		return err
	}
	record("query amount > 10", largeDocs)

	allDocs, err := all.Await(ctx)
	if err != nil {
		return err
	}
	record("read all", allDocs)

	return write(out, steps)
}
