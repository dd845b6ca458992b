package database

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/pkg/errors"
)

var ErrNoResult = errors.New("no result")

type Query struct {
	Select    string
	Where     string
	WhereArgs []interface{}
	OrderBy   string
	Limit     uint64
	Offset    uint64
}

// getRow returns the first row of queryRows or ErrNoResult.
func getRow[T any](table string, columns string, qu Query) (T, error) {
	qu.Limit = 1
	results, err := queryRows[T](table, columns, qu)
	if err != nil {
		var empty T
		return empty, err
	}
	if len(results) >= 1 {
		return results[0], nil
	}
	var empty T
	return empty, ErrNoResult
}

// queryRows scans every row of the query into T with sqlx struct scanning.
func queryRows[T any](table string, columns string, qu Query) ([]T, error) {
	if qu.Select != "" {
		columns = qu.Select
	}
	query := buildquery(columns, table, qu, false)
	logger.Log.Debugln("query: ", query, " -args: ", qu.WhereArgs)

	ReadWriteMu.RLock()
	defer ReadWriteMu.RUnlock()
	rows, err := DB.Queryx(query, qu.WhereArgs...)
	if err != nil {
		logger.Log.Errorln("Query: ", query, " error: ", err)
		return nil, errors.Wrap(err, "query "+table)
	}
	defer rows.Close()

	capacity := 10
	if qu.Limit >= 1 {
		capacity = int(qu.Limit)
	}
	result := make([]T, 0, capacity)
	for rows.Next() {
		var item T
		if err := rows.StructScan(&item); err != nil {
			logger.Log.Errorln("Query2: ", query, " error: ", err)
			return nil, errors.Wrap(err, "scan "+table)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func buildquery(columns string, table string, qu Query, count bool) string {
	var query strings.Builder
	query.WriteString("select " + columns + " from " + table)
	if qu.Where != "" {
		query.WriteString(" where " + qu.Where)
	}
	if qu.OrderBy != "" && !count {
		query.WriteString(" order by " + qu.OrderBy)
	}
	if qu.Limit != 0 {
		if qu.Offset != 0 {
			query.WriteString(" limit " + strconv.Itoa(int(qu.Offset)) + ", " + strconv.Itoa(int(qu.Limit)))
		} else {
			query.WriteString(" limit " + strconv.Itoa(int(qu.Limit)))
		}
	}
	return query.String()
}

func CountRows(table string, qu Query) (int, error) {
	qu.Offset = 0
	qu.Limit = 0
	query := buildquery("count(*)", table, qu, true)
	logger.Log.Debugln("query count: ", query, " -args: ", qu.WhereArgs)

	var counter int
	ReadWriteMu.RLock()
	err := DB.Get(&counter, query, qu.WhereArgs...)
	ReadWriteMu.RUnlock()
	if err != nil {
		logger.Log.Errorln("Query: ", query, " error: ", err)
		return 0, errors.Wrap(err, "count "+table)
	}
	return counter, nil
}

func dbexec(query string, args []interface{}) (sql.Result, error) {
	logger.Log.Debugln("exec: ", query, " -args: ", args)
	ReadWriteMu.Lock()
	result, err := DB.Exec(query, args...)
	ReadWriteMu.Unlock()
	return result, err
}

func insertarrayprepare(table string, columns []string) string {
	query := "INSERT INTO " + table + " ("
	cols := ""
	vals := ""
	for idx := range columns {
		if idx != 0 {
			cols += ","
			vals += ","
		}
		cols += columns[idx]
		vals += "?"
	}
	query += cols + ") VALUES (" + vals + ")"
	return query
}

func InsertArray(table string, columns []string, values []interface{}) (sql.Result, error) {
	query := insertarrayprepare(table, columns)
	result, err := dbexec(query, values)
	if err != nil {
		logger.Log.Errorln("Insert: ", table, " values: ", columns, values, " error: ", err)
		return result, errors.Wrap(err, "insert "+table)
	}
	return result, nil
}

func updatearrayprepare(table string, columns []string, values []interface{}, qu Query) (string, []interface{}) {
	query := "UPDATE " + table + " SET "
	for idx := range columns {
		if idx != 0 {
			query += ","
		}
		query += columns[idx] + " = ?"
	}
	if qu.Where != "" {
		query += " where " + qu.Where
	}
	args := make([]interface{}, 0, len(values)+len(qu.WhereArgs))
	args = append(args, values...)
	args = append(args, qu.WhereArgs...)
	return query, args
}

func UpdateArray(table string, columns []string, values []interface{}, qu Query) (sql.Result, error) {
	query, args := updatearrayprepare(table, columns, values, qu)
	result, err := dbexec(query, args)
	if err != nil {
		logger.Log.Errorln("Update: ", table, " values: ", columns, values, " where: ", qu.Where, " whereargs: ", qu.WhereArgs, " error: ", err)
		return result, errors.Wrap(err, "update "+table)
	}
	return result, nil
}

func UpdateColumn(table string, column string, value interface{}, qu Query) (sql.Result, error) {
	return UpdateArray(table, []string{column}, []interface{}{value}, qu)
}

func DeleteRow(table string, qu Query) (sql.Result, error) {
	query := "DELETE FROM " + table
	if qu.Where != "" {
		query += " where " + qu.Where
	}
	result, err := dbexec(query, qu.WhereArgs)
	if err != nil {
		logger.Log.Errorln("Delete: ", table, " where: ", qu.Where, " whereargs: ", qu.WhereArgs, " error: ", err)
		return result, errors.Wrap(err, "delete from "+table)
	}
	return result, nil
}
