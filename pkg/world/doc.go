/*
Package world loads the static world / data-center / region catalog once at
startup and answers token-resolution queries against it.

The catalog is immutable after Load returns: every accessor hands back a
fresh copy or a read-only slice, so concurrent callers never need a lock.
Loading rules (public+flagged worlds, the {408,409,410,411} force-include
set, the world-id-25 exclusion, and the static Chinese/Korean/"Eorzea"
region rows) are applied in Load; the tables behind them
(forceIncludedWorlds, excludedWorlds, staticRegions) are documented where
they are declared.
*/
package world
