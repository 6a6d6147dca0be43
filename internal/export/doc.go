// Package export writes tables to xlsx workbooks.
package export
