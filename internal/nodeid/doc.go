/*
Package nodeid names nodes inside nested workflows.

An address is a dot-separated sequence of names, read from the outer
workflow inwards, e.g. `single_subject_01_wf.datasource`. Every segment must
be a plain identifier: letters, digits and underscores, not starting with a
digit. Dots are reserved as the separator.
*/
package nodeid
