/*
Package story loads and serves the immutable sequence of steps a journey walks through.

A story is a list of records with the fields id, text, a and b, stored as JSON (the
reference format) or YAML. Loading validates the whole document up front: every problem
is reported in a single domain.MalformedStoryError, and a Store is only returned for a
story that is fully valid. A Store never changes after Load and can be shared by any
number of sessions without synchronization.
*/
package story
