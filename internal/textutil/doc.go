// Package textutil turns free-form text such as disc labels into names that
// are safe to use as bundle directory names.
package textutil
