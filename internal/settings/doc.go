// Package settings loads flat key/value settings files.
//
// A settings file holds one "key = value" or "key: value" pair per line.
// Blank lines and lines starting with # or ; are ignored, and [section]
// headers fold into a single namespace.
//
// Every file gets __dir__, the absolute directory of the file. A file may
// name a parent with extends; the parent is loaded first, relative to the
// child's directory, and the child's pairs override it.
//
// Values may reference other keys with ${key}. Use $$ for a literal $.
//
//	# base.cfg
//	root = ${__dir__}
//	log_dir = ${root}/logs
//
//	# child.cfg
//	extends = base.cfg
//	log_dir = /var/log/app
//
// Loading child.cfg yields log_dir=/var/log/app and root set to the
// directory of base.cfg.
package settings
