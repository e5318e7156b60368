package tables

import "fmt"

type TableNotFoundError struct {
	TableID int64
}

func (e TableNotFoundError) Error() string {
	return fmt.Sprintf("Table id %d does not exist.", e.TableID)
}
