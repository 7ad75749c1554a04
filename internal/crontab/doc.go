// Package crontab owns the crontab file: making sure it exists, reading it,
// watching it for modifications and parsing it into schedule entries.
//
// The file format is one schedule per line, fields separated by single spaces:
//
//	<minute> <hour> <dom> <month> <dow> <command...>
//
// Blank lines are ignored. There is no comment, quoting or escaping support.
package crontab
