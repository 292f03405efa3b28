package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/model"
)

func TestGetUserData(t *testing.T) {
	svc, _ := newTestService(t, Options{Parse: importer.DefaultOptions()})
	u := createUser(t, svc, "ada")
	ctx := context.Background()

	bin, err := svc.CreateBin(ctx, u.ID, model.Bin{Name: "Drawer A", Location: "Shelf 2"})
	require.NoError(t, err)
	part, err := svc.CreatePart(ctx, u.ID, model.Part{Name: "NE555", Quantity: 10, BinID: bin.ID})
	require.NoError(t, err)

	res, err := svc.ImportFile(ctx, BytesInput("123456.csv", []byte(digiKeyInvoice)))
	require.NoError(t, err)
	require.NoError(t, svc.AppendReference(ctx, u.ID, res.Invoice.ID, model.SelectInvoices))

	// Allocated out of order so the result has to be sorted.
	_, err = svc.AllocatePartNumber(ctx, u.ID, 5, 0)
	require.NoError(t, err)
	_, err = svc.AllocatePartNumber(ctx, u.ID, 1, 2)
	require.NoError(t, err)

	// Dangling references are counted, not returned.
	require.NoError(t, svc.AppendReference(ctx, u.ID, "gone", model.SelectParts))

	data, err := svc.GetUserData(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, u.ID, data.User.ID)
	require.Len(t, data.Parts, 1)
	assert.Equal(t, part.ID, data.Parts[0].ID)
	require.Len(t, data.Bins, 1)
	assert.Equal(t, "Drawer A", data.Bins[0].Name)
	require.Len(t, data.Invoices, 1)
	assert.Equal(t, uint64(123456), data.Invoices[0].OrderNumber)

	require.Len(t, data.PartNumbers, 2)
	assert.Equal(t, "0102-0001", data.PartNumbers[0].String())
	assert.Equal(t, "0500-0001", data.PartNumbers[1].String())

	assert.Equal(t, 1, data.Missing)
}

func TestGetUserData_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.GetUserData(context.Background(), "nobody")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}
