package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileTable_InvalidMode(t *testing.T) {
	table := NewOpenFileTable(2)
	_, err := table.Open("A", "-xyz", "/")
	assert.Error(t, err)
}

func TestOpenFileTable_CapacityEnforced(t *testing.T) {
	table := NewOpenFileTable(1)

	_, err := table.Open("A", "-r", "/")
	require.NoError(t, err)

	_, err = table.Open("B", "-r", "/")
	assert.Error(t, err)
}

func TestOpenFileTable_CloseThenReopen(t *testing.T) {
	table := NewOpenFileTable(1)

	_, err := table.Open("A", "-r", "/")
	require.NoError(t, err)

	require.NoError(t, table.Close("A"))

	_, err = table.Open("A", "-w", "/")
	require.NoError(t, err)
}

func TestOpenFileTable_CloseNotOpen(t *testing.T) {
	table := NewOpenFileTable(1)
	err := table.Close("A")
	assert.Error(t, err)
}

func TestOpenFileTable_ListPreservesOrder(t *testing.T) {
	table := NewOpenFileTable(3)
	_, err := table.Open("A", "-r", "/")
	require.NoError(t, err)
	_, err = table.Open("B", "-w", "/")
	require.NoError(t, err)

	list := table.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)
	assert.Equal(t, "B", list[1].Name)
}

func TestOpenFileTable_SeekBoundsChecked(t *testing.T) {
	table := NewOpenFileTable(1)
	_, err := table.Open("A", "-r", "/")
	require.NoError(t, err)

	assert.Error(t, table.Seek("A", 11, 10))
	assert.NoError(t, table.Seek("A", 5, 10))
}
