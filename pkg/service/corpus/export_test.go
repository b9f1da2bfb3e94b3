package corpus

// Export for testing
var ParseObjectPath = parseObjectPath
