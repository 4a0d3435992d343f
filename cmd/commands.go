package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"heapdb/buffer"
	"heapdb/catalog/db_types"
	"heapdb/disk/pages"
	"heapdb/heap"
)

func (c *cli) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables := c.db.Tables()

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetAutoFormatHeaders(false)
			tw.SetHeader([]string{"name", "id", "pages", "schema", "primary key"})
			for _, oid := range tables.TableIDs() {
				name, err := tables.TableName(oid)
				if err != nil {
					return err
				}
				f, err := tables.HeapFile(oid)
				if err != nil {
					return err
				}
				pk, err := tables.PrimaryKey(oid)
				if err != nil {
					return err
				}
				tw.Append([]string{name, strconv.Itoa(int(oid)), strconv.Itoa(f.NumPages()), f.Schema().String(), pk})
			}
			tw.Render()
			return nil
		},
	}
}

func (c *cli) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <table>",
		Short: "Show slot occupancy of every page of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			oid, err := c.db.Tables().TableID(args[0])
			if err != nil {
				return err
			}
			f, err := c.db.Tables().HeapFile(oid)
			if err != nil {
				return err
			}

			txn := c.db.Begin()
			defer func() {
				if err != nil {
					c.db.Abort(txn)
					return
				}
				err = c.db.Commit(txn)
			}()

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetAutoFormatHeaders(false)
			tw.SetHeader([]string{"page", "slots", "used", "free"})
			for pageNo := 0; pageNo < f.NumPages(); pageNo++ {
				p, err := c.db.Pool().GetPage(txn, pages.NewPageID(oid, pageNo), buffer.ReadOnly)
				if err != nil {
					return err
				}
				hp, ok := p.(*heap.HeapPage)
				if !ok {
					return fmt.Errorf("page %d is not a heap page", pageNo)
				}
				free := hp.NumEmptySlots()
				tw.Append([]string{
					strconv.Itoa(pageNo),
					strconv.Itoa(hp.NumSlots()),
					strconv.Itoa(hp.NumSlots() - free),
					strconv.Itoa(free),
				})
			}
			tw.Render()
			return nil
		},
	}
}

func (c *cli) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <table>",
		Short: "Print all rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			oid, err := c.db.Tables().TableID(args[0])
			if err != nil {
				return err
			}
			schema, err := c.db.Tables().Schema(oid)
			if err != nil {
				return err
			}

			txn := c.db.Begin()
			defer func() {
				if err != nil {
					c.db.Abort(txn)
					return
				}
				err = c.db.Commit(txn)
			}()

			rows, err := c.db.Scan(txn, args[0])
			if err != nil {
				return err
			}

			header := make([]string, schema.NumFields())
			for i, col := range schema.GetColumns() {
				header[i] = col.Name
			}

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetAutoFormatHeaders(false)
			tw.SetHeader(header)
			for _, t := range rows {
				row := make([]string, schema.NumFields())
				for i, v := range t.Values() {
					row[i] = v.String()
				}
				tw.Append(row)
			}
			tw.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n", len(rows))
			return nil
		},
	}
}

func (c *cli) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <value>...",
		Short: "Insert one row into a table and commit",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			oid, err := c.db.Tables().TableID(args[0])
			if err != nil {
				return err
			}
			schema, err := c.db.Tables().Schema(oid)
			if err != nil {
				return err
			}
			if len(args)-1 != schema.NumFields() {
				return fmt.Errorf("table %s has %d columns, got %d values", args[0], schema.NumFields(), len(args)-1)
			}

			values := make([]*db_types.Value, schema.NumFields())
			for i, col := range schema.GetColumns() {
				if values[i], err = db_types.ParseValue(col.TypeId, args[i+1]); err != nil {
					return fmt.Errorf("column %s: %w", col.Name, err)
				}
			}

			txn := c.db.Begin()
			t, err := c.db.InsertValues(txn, args[0], values)
			if err != nil {
				c.db.Abort(txn)
				return err
			}
			if err := c.db.Commit(txn); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "inserted at %s\n", t.Rid)
			return nil
		},
	}
}
