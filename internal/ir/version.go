package ir

// IRVersion is the IR schema version. It is mixed into fingerprints and
// recorded with every journaled clone session.
const IRVersion = "1"
