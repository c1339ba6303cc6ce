package node

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/table"
)

//a node is an object that represents a machine in the cluster. The manager is a type of node, and so is the worker.
//workers describe themselves with a node, the manager keeps the last node it heard from each worker
//and the console renders them as the rows of the "cluster" table.

type State string

const (
	Up      State = "up"
	Down    State = "down"
	Unknown State = "unknown"
)

type Node struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Ip              string    `json:"ip"`
	Api             string    `json:"api"`
	Cores           int       `json:"cores"`
	Memory          int64     `json:"memory"`
	MemoryAllocated int64     `json:"memoryAllocated"`
	Disk            int64     `json:"disk"`
	DiskAllocated   int64     `json:"diskAllocated"`
	Load            float64   `json:"load"`
	Role            string    `json:"role"`
	TaskCount       int       `json:"taskCount"`
	State           State     `json:"state"`
	LastSeen        time.Time `json:"lastSeen"`
}

// column ids of the cluster table
const (
	ColID      = "id"
	ColName    = "name"
	ColIP      = "ip"
	ColRole    = "role"
	ColState   = "state"
	ColCores   = "cores"
	ColMemory  = "memory"
	ColDisk    = "disk"
	ColLoad    = "load"
	ColTasks   = "tasks"
	ColUpdated = "updated"
)

var Columns = []string{
	ColID, ColName, ColIP, ColRole, ColState, ColCores,
	ColMemory, ColDisk, ColLoad, ColTasks, ColUpdated,
}

// NewTable returns an empty cluster table with its comparators and formatters set.
func NewTable() *table.Model {
	tm := table.MustNew(Columns...)
	_ = tm.SetComparator(ColCores, table.IntComparator)
	_ = tm.SetComparator(ColMemory, table.Int64Comparator)
	_ = tm.SetComparator(ColDisk, table.Int64Comparator)
	_ = tm.SetComparator(ColTasks, table.IntComparator)
	_ = tm.SetComparator(ColUpdated, table.TimeComparator)
	_ = tm.SetComparator(ColLoad, table.ComparatorFunc(compareFloat))
	_ = tm.SetFormatter(ColMemory, BytesFormatter)
	_ = tm.SetFormatter(ColDisk, BytesFormatter)
	_ = tm.SetFormatter(ColUpdated, table.TimeFormatter)
	_ = tm.SetFormatter(ColLoad, table.FormatterFunc(func(v any) string {
		f, _ := v.(float64)
		return strconv.FormatFloat(f, 'f', 2, 64)
	}))
	return tm
}

// Table builds the cluster table for nodes, in the given order.
func Table(nodes []Node) *table.Model {
	tm := NewTable()
	for _, n := range nodes {
		PopulateRow(tm.AddRow(), n)
	}
	return tm
}

func PopulateRow(row *table.Row, n Node) {
	state := n.State
	if state == "" {
		state = Unknown
	}
	row.Cell(ColID, n.ID.String()).
		Cell(ColName, n.Name).
		Cell(ColIP, n.Ip).
		Cell(ColRole, n.Role).
		Cell(ColState, string(state)).
		Cell(ColCores, n.Cores).
		Cell(ColMemory, n.Memory).
		Cell(ColDisk, n.Disk).
		Cell(ColLoad, n.Load).
		Cell(ColTasks, n.TaskCount).
		Cell(ColUpdated, n.LastSeen)
}

func compareFloat(a, b any) int {
	fa, _ := a.(float64)
	fb, _ := b.(float64)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

var units = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// BytesFormatter renders byte counts with binary units, e.g. 1.5 GiB.
var BytesFormatter = table.FormatterFunc(func(v any) string {
	var n float64
	switch b := v.(type) {
	case int64:
		n = float64(b)
	case int:
		n = float64(b)
	case uint64:
		n = float64(b)
	case float64:
		n = b
	default:
		return fmt.Sprint(v)
	}
	i := 0
	for n >= 1024 && i < len(units)-1 {
		n /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", int64(n), units[i])
	}
	return fmt.Sprintf("%.1f %s", n, units[i])
})
