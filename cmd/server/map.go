package main

// defaultMap is the built-in ctf_ascii map loaded when -mapfile is not
// given, a small symmetric CTF layout exercising spawns, flags, a medkit
// and an ammopack; enough to drive World's full tick without requiring an
// external map file for a first run.
const defaultMap = `[DATA]
###################
#R...............B#
#.#.............#.#
#.#.###########.#.#
#.#.#....F.G..#.#.#
#.#.#....M.A..#.#.#
#.#.#.........#.#.#
#.#.###########.#.#
#.#.............#.#
#R...............B#
###################
[END_DATA]
[SPAWN_RED] R
[SPAWN_BLU] B
[FLAG_RED] F
[FLAG_BLU] G
[MEDKIT] M
[AMMOPACK] A
`
