// export_test.go exports private functions for white-box testing.
package logger

// CollectErrorEntries exports the private chain walker for testing.
var CollectErrorEntries = collectErrorEntries
